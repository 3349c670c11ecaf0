package domain

import (
	"strings"
	"time"
)

// Tone drives word choice in both the model prompt and the fallback templates.
type Tone string

const (
	ToneWarm       Tone = "warm"
	ToneReflective Tone = "reflective"
	ToneHumorous   Tone = "humorous"
	ToneRespectful Tone = "respectful"
)

// Style drives sentence construction.
type Style string

const (
	StyleConversational Style = "conversational"
	StylePoetic         Style = "poetic"
	StyleStorytelling   Style = "storytelling"
	StyleFormal         Style = "formal"
)

const (
	DefaultTone  = ToneWarm
	DefaultStyle = StyleConversational
)

var (
	tones  = []Tone{ToneWarm, ToneReflective, ToneHumorous, ToneRespectful}
	styles = []Style{StyleConversational, StylePoetic, StyleStorytelling, StyleFormal}
)

// Tones returns every supported tone in display order.
func Tones() []Tone { return append([]Tone(nil), tones...) }

// Styles returns every supported style in display order.
func Styles() []Style { return append([]Style(nil), styles...) }

// LookupTone reports whether s names a supported tone.
func LookupTone(s string) (Tone, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range tones {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// LookupStyle reports whether s names a supported style.
func LookupStyle(s string) (Style, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range styles {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ParseTone maps unknown or empty values to DefaultTone.
func ParseTone(s string) Tone {
	if t, ok := LookupTone(s); ok {
		return t
	}
	return DefaultTone
}

// ParseStyle maps unknown or empty values to DefaultStyle.
func ParseStyle(s string) Style {
	if st, ok := LookupStyle(s); ok {
		return st
	}
	return DefaultStyle
}

// Voice is a normalized tone/style pair.
type Voice struct {
	Tone  Tone
	Style Style
}

// Memorial is the narrated aggregate. Narrative is overwritten in full on
// every successful generation; no history is kept.
type Memorial struct {
	ID          string
	FullName    string
	BirthDate   string
	PassedDate  string
	Tone        Tone
	Style       Style
	Narrative   string
	OwnerID     string
	MemoryCount int
	UpdatedAt   time.Time
}

// Voice returns the memorial's tone and style with defaults applied.
func (m Memorial) Voice() Voice {
	return Voice{
		Tone:  ParseTone(string(m.Tone)),
		Style: ParseStyle(string(m.Style)),
	}
}

// DisplayName returns the subject's name, or a neutral stand-in when unset.
func (m Memorial) DisplayName() string {
	if name := strings.TrimSpace(m.FullName); name != "" {
		return name
	}
	return "someone dearly loved"
}
