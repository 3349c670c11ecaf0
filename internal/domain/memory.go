package domain

import (
	"strings"
	"time"
)

// Emotion tags a memory with its emotional register.
type Emotion string

const (
	EmotionJoyful      Emotion = "joyful"
	EmotionFunny       Emotion = "funny"
	EmotionThoughtful  Emotion = "thoughtful"
	EmotionBittersweet Emotion = "bittersweet"
	EmotionSad         Emotion = "sad"
)

// ParseEmotion returns the empty Emotion for anything unrecognized.
func ParseEmotion(s string) Emotion {
	switch e := Emotion(strings.ToLower(strings.TrimSpace(s))); e {
	case EmotionJoyful, EmotionFunny, EmotionThoughtful, EmotionBittersweet, EmotionSad:
		return e
	default:
		return ""
	}
}

// Memory is a single contribution to a memorial.
type Memory struct {
	ID              string
	MemorialID      string
	ContributorID   string
	ContributorName string
	Relationship    string
	TimePeriod      string
	Emotion         Emotion
	Content         string
	CreatedAt       time.Time
}
