package narrative

import (
	"sort"
	"strings"
	"unicode/utf8"

	"memorial-narrator/internal/domain"
)

const (
	// minSubstantialRunes is the content length a memory must exceed to earn its own paragraph.
	minSubstantialRunes = 50
	// maxQuotedMemories caps the number of memory paragraphs.
	maxQuotedMemories = 5
)

// Compose builds a first-person narrative from templates. It is pure, never
// fails, and always returns a non-empty string, even for a single one-line memory.
//
// Unlike the model path, Compose quotes memory content verbatim.
func Compose(memorial domain.Memorial, memories []domain.Memory) string {
	voice := memorial.Voice()
	paragraphs := []string{opening(voice, memorial.DisplayName())}

	for _, m := range selectMemories(memories) {
		paragraphs = append(paragraphs, memoryParagraph(m, voice))
	}

	if rels := distinctRelationships(memories); len(rels) > 0 {
		paragraphs = append(paragraphs, relationshipLine(voice.Style)(strings.Join(rels, ", ")))
	}

	moods := moodsOf(memories)
	if moods.joyful {
		paragraphs = append(paragraphs, selectRule(joyRules, voice))
	}
	if moods.thoughtful {
		paragraphs = append(paragraphs, selectRule(thoughtfulRules, voice))
	}
	if moods.bittersweet {
		paragraphs = append(paragraphs, selectRule(bittersweetRules, voice))
	}

	paragraphs = append(paragraphs, selectRule(closingRules, voice))
	return strings.Join(paragraphs, "\n\n")
}

func opening(v domain.Voice, name string) string {
	fn, ok := openings[v]
	if !ok {
		fn = openings[defaultVoice]
	}
	return fn(name)
}

func relationshipLine(s domain.Style) func(string) string {
	if fn, ok := relationshipLines[s]; ok {
		return fn
	}
	return relationshipLines[domain.DefaultStyle]
}

func attributionPrefix(s domain.Style, who string) string {
	fn, ok := attributions[s]
	if !ok {
		fn = attributions[domain.DefaultStyle]
	}
	return fn(who)
}

func emotionLine(e domain.Emotion, t domain.Tone) string {
	byTone, ok := emotionLines[domain.ParseEmotion(string(e))]
	if !ok {
		return ""
	}
	if line, ok := byTone[t]; ok {
		return line
	}
	return byTone[""]
}

func memoryParagraph(m domain.Memory, v domain.Voice) string {
	var b strings.Builder
	b.WriteString(attributionPrefix(v.Style, attributionName(m)))
	b.WriteString(`"`)
	b.WriteString(strings.TrimSpace(m.Content))
	b.WriteString(`"`)
	if period := strings.TrimSpace(m.TimePeriod); period != "" {
		b.WriteString(" during ")
		b.WriteString(period)
	}
	b.WriteString(emotionLine(m.Emotion, v.Tone))
	return b.String()
}

func attributionName(m domain.Memory) string {
	if name := strings.TrimSpace(m.ContributorName); name != "" {
		return name
	}
	if rel := strings.TrimSpace(m.Relationship); rel != "" {
		return "my " + strings.ToLower(rel)
	}
	return "someone close to me"
}

// selectMemories returns up to maxQuotedMemories substantial memories in
// their original order. When none is long enough, the longest memory is used
// so the narrative still cites something real.
func selectMemories(memories []domain.Memory) []domain.Memory {
	var picked []domain.Memory
	longest := -1
	longestLen := 0
	for i, m := range memories {
		n := utf8.RuneCountInString(strings.TrimSpace(m.Content))
		if n == 0 {
			continue
		}
		if n > longestLen {
			longest, longestLen = i, n
		}
		if n > minSubstantialRunes && len(picked) < maxQuotedMemories {
			picked = append(picked, m)
		}
	}
	if len(picked) == 0 && longest >= 0 {
		picked = append(picked, memories[longest])
	}
	return picked
}

func distinctRelationships(memories []domain.Memory) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range memories {
		rel := strings.TrimSpace(m.Relationship)
		if rel == "" {
			continue
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		out = append(out, rel)
	}
	return out
}

type moodSet struct {
	joyful      bool
	thoughtful  bool
	bittersweet bool
}

func moodsOf(memories []domain.Memory) moodSet {
	var s moodSet
	for _, m := range memories {
		switch domain.ParseEmotion(string(m.Emotion)) {
		case domain.EmotionJoyful, domain.EmotionFunny:
			s.joyful = true
		case domain.EmotionThoughtful:
			s.thoughtful = true
		case domain.EmotionBittersweet, domain.EmotionSad:
			s.bittersweet = true
		}
	}
	return s
}

// Emotions returns the distinct emotion tags present, sorted, for logging.
func Emotions(memories []domain.Memory) []string {
	seen := make(map[domain.Emotion]struct{})
	for _, m := range memories {
		if e := domain.ParseEmotion(string(m.Emotion)); e != "" {
			seen[e] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, string(e))
	}
	sort.Strings(out)
	return out
}
