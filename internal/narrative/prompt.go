// Package narrative turns a memorial's memories into a first-person life
// narrative, either through a language model or a deterministic template
// composer when the model is unavailable.
package narrative

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"memorial-narrator/internal/domain"
)

const (
	// DefaultMaxMemoryChars caps a single memory's content inside the prompt.
	DefaultMaxMemoryChars = 2000
	// DefaultMaxMemoryBlockChars bounds the whole memory section (~6k tokens at 4 chars/token).
	DefaultMaxMemoryBlockChars = 24000

	memorySeparator = "\n---\n"
)

// PromptOptions bounds the size of the assembled prompt.
type PromptOptions struct {
	MaxMemoryChars      int
	MaxMemoryBlockChars int
}

// DefaultPromptOptions returns the production prompt bounds.
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		MaxMemoryChars:      DefaultMaxMemoryChars,
		MaxMemoryBlockChars: DefaultMaxMemoryBlockChars,
	}
}

func (o PromptOptions) withDefaults() PromptOptions {
	if o.MaxMemoryChars <= 0 {
		o.MaxMemoryChars = DefaultMaxMemoryChars
	}
	if o.MaxMemoryBlockChars <= 0 {
		o.MaxMemoryBlockChars = DefaultMaxMemoryBlockChars
	}
	return o
}

// BuildPrompt renders the memorial and its memories into a single instruction
// document. It performs no I/O and is deterministic for identical inputs.
func BuildPrompt(memorial domain.Memorial, memories []domain.Memory, opts PromptOptions) string {
	opts = opts.withDefaults()
	voice := memorial.Voice()
	name := memorial.DisplayName()

	blocks, omitted := packMemories(memories, opts)

	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are a skilled and compassionate writer crafting a first-person life narrative for %s (%s - %s). ",
		name, dateOrUnknown(memorial.BirthDate), dateOrUnknown(memorial.PassedDate)))
	b.WriteString("Write as if they are telling their own story, using \"I\" and \"my\", drawing only on the memories shared by the people who knew them.\n\n")

	b.WriteString("# Voice\n\n")
	b.WriteString(fmt.Sprintf("**Tone:** %s. %s\n\n", voice.Tone, toneDirective(voice.Tone)))
	b.WriteString(fmt.Sprintf("**Style:** %s. %s\n\n", voice.Style, styleDirective(voice.Style)))

	b.WriteString("# Rules\n\n")
	b.WriteString(fmt.Sprintf("1. Write strictly in the first person as %s.\n", name))
	b.WriteString("2. Paraphrase and weave the memories into the narrative. Never quote them verbatim or set them apart as blocks.\n")
	b.WriteString("3. Vary attribution: sometimes name the contributor, sometimes the relationship, sometimes both, sometimes only the context. Never repeat the same \"X said Y\" pattern or open two sentences the same way.\n")
	b.WriteString("4. Group memories by theme, relationship, or period of life. Do not list them one after another.\n")
	b.WriteString("5. Do not invent facts, names, places, or events beyond what the memories state.\n")
	b.WriteString("6. Write 5-7 paragraphs: open with early life, explore themes and relationships in the middle, and close with reflections on legacy and how I live on through these memories.\n")
	b.WriteString("7. Balance joyful, humorous, and poignant moments, and connect each paragraph to the next with a natural transition.\n\n")

	b.WriteString("# Memories to Incorporate\n\n")
	if omitted > 0 {
		b.WriteString(fmt.Sprintf("(%d earlier memories were omitted to keep this request within length limits.)\n\n", omitted))
	}
	b.WriteString(strings.Join(blocks, memorySeparator))
	b.WriteString("\n\n")

	b.WriteString("# Task\n\n")
	b.WriteString("Begin with early life and end with reflective thoughts about legacy. ")
	b.WriteString("Make every paragraph meaningful and connected to the next so the narrative reads as one continuous story told in my own words.\n")

	return b.String()
}

// packMemories renders each memory and keeps the newest ones that fit the
// block budget. Survivors are returned in their original order; at least one
// memory is always kept.
func packMemories(memories []domain.Memory, opts PromptOptions) ([]string, int) {
	rendered := make([]string, 0, len(memories))
	for _, m := range memories {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		rendered = append(rendered, renderMemory(m, opts.MaxMemoryChars))
	}
	if len(rendered) == 0 {
		return nil, 0
	}

	used := 0
	start := len(rendered)
	for i := len(rendered) - 1; i >= 0; i-- {
		cost := len(rendered[i])
		if i < len(rendered)-1 {
			cost += len(memorySeparator)
		}
		if used+cost > opts.MaxMemoryBlockChars && start < len(rendered) {
			break
		}
		used += cost
		start = i
	}
	return rendered[start:], start
}

func renderMemory(m domain.Memory, maxChars int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("MEMORY CONTENT: \"%s\"\n", excerpt(strings.TrimSpace(m.Content), maxChars)))
	if v := strings.TrimSpace(m.ContributorName); v != "" {
		b.WriteString(fmt.Sprintf("SHARED BY: %s\n", v))
	}
	if v := strings.TrimSpace(m.Relationship); v != "" {
		b.WriteString(fmt.Sprintf("RELATIONSHIP: %s\n", v))
	}
	if v := strings.TrimSpace(m.TimePeriod); v != "" {
		b.WriteString(fmt.Sprintf("TIME PERIOD: %s\n", v))
	}
	if e := domain.ParseEmotion(string(m.Emotion)); e != "" {
		b.WriteString(fmt.Sprintf("EMOTIONAL CONTEXT: %s\n", e))
	}
	return strings.TrimRight(b.String(), "\n")
}

func excerpt(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxChars])) + "..."
}

func dateOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func toneDirective(t domain.Tone) string {
	switch t {
	case domain.ToneReflective:
		return "Be contemplative and unhurried; dwell on meaning and what each moment taught me."
	case domain.ToneHumorous:
		return "Let warmth and wit lead; find the humor in the stories without mocking anyone."
	case domain.ToneRespectful:
		return "Be dignified and grateful; honor the people and moments with restraint."
	default:
		return "Be warm and affectionate; let love for family and friends come through."
	}
}

func styleDirective(s domain.Style) string {
	switch s {
	case domain.StylePoetic:
		return "Use lyrical language and imagery while keeping the facts intact."
	case domain.StyleStorytelling:
		return "Tell it as a story with chapters, characters, and turning points."
	case domain.StyleFormal:
		return "Use measured, formal prose suitable for a printed tribute."
	default:
		return "Write as if reminiscing aloud to a friend, in plain and personal language."
	}
}
