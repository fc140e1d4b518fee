// Package tui provides Bubble Tea components for actorctl's --tui mode.
//
// TUI is opt-in only and read-only: it renders the same payloads the
// table/json/yaml renderer uses, never fetching data of its own.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is used for view headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle is used for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle marks healthy/completed states.
	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)

	// WarningStyle marks in-progress/pending states.
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)

	// ErrorStyle marks failed states.
	ErrorStyle = lipgloss.NewStyle().Foreground(errorColor)

	// HelpStyle is used for the quit hint.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle wraps one stat in a bordered box.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle labels a stat box.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle is the stat box's number.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// StateStyle returns a style for a lifecycle state string, shared across
// actor, stage, and message states.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "completed", "relayed", "healthy":
		return SuccessStyle
	case "running", "pending":
		return WarningStyle
	case "failed", "cancelled", "unhealthy":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
