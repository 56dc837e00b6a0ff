package ui

import "github.com/charmbracelet/lipgloss"

// Lipgloss styles
var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	statusOnline  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	statusOffline = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	sidebarStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	chatStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
