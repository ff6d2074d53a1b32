package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	focusedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	blurredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)
