package cli

import "github.com/charmbracelet/lipgloss"

var (
	headerColor    = lipgloss.Color("#F780FF")
	narrativeColor = lipgloss.Color("#E9E9F4")
	mutedColor     = lipgloss.Color("#6272A4")
	warningColor   = lipgloss.Color("#F1FA8C")
	errorColor     = lipgloss.Color("#FF5555")
	successColor   = lipgloss.Color("#50FA7B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(headerColor).
			Bold(true)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(narrativeColor).
			Width(80).
			PaddingLeft(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)
