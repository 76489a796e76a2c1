package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errorText lipgloss.Style
	muted     lipgloss.Style
	notice    lipgloss.Style

	traceHeader lipgloss.Style
	traceLabel  lipgloss.Style
	traceBody   lipgloss.Style

	card      lipgloss.Style
	cardValue lipgloss.Style
	bar       lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),

		traceHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		traceLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		traceBody:   lipgloss.NewStyle().Foreground(lipgloss.Color("7")),

		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		cardValue: lipgloss.NewStyle().Bold(true),
		bar:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
}
