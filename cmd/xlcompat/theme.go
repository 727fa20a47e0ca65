package main

import "github.com/charmbracelet/lipgloss"

// theme styles human-facing command output.
type theme struct {
	Bold  lipgloss.Style
	Green lipgloss.Style
	Red   lipgloss.Style
	Dim   lipgloss.Style
}

var defaultTheme = theme{
	Bold:  lipgloss.NewStyle().Bold(true),
	Green: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Red:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Dim:   lipgloss.NewStyle().Faint(true),
}

// presence renders whether something is on disk.
func (t theme) presence(ok bool) string {
	if ok {
		return t.Green.Render("installed")
	}
	return t.Red.Render("missing")
}
