package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	upColor      = lipgloss.Color("#10B981")
	downColor    = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	accentColor  = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle  = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	symbolStyle = lipgloss.NewStyle().Bold(true).Width(8)
	okStyle     = lipgloss.NewStyle().Foreground(upColor)
	errStyle    = lipgloss.NewStyle().Foreground(downColor).Bold(true)
	upStyle     = lipgloss.NewStyle().Foreground(upColor)
	downStyle   = lipgloss.NewStyle().Foreground(downColor)
)

func printField(label, value string) {
	fmt.Println(labelStyle.Render(label+":") + " " + value)
}

// signed renders a change value green or red.
func signed(format string, v float64) string {
	s := fmt.Sprintf(format, v)
	if v >= 0 {
		return upStyle.Render("+" + s)
	}
	return downStyle.Render(s)
}
