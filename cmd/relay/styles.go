package main

import "github.com/charmbracelet/lipgloss"

// Styles for `ask --verbose` trace lines.
var (
	stepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	modelTextStyle  = lipgloss.NewStyle().PaddingLeft(2)
	toolNameStyle   = lipgloss.NewStyle().Bold(true)
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	skippedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
)
