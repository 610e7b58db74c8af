package styles

import "github.com/charmbracelet/lipgloss"

var (
	Title  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	Header = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	Footer = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	Danger = lipgloss.NewStyle().Foreground(lipgloss.Color("#f44336"))
	Warn   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	Good   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	Faint  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
)

// Panel is the border color of the detail panel.
const Panel = "#AAAAAA"
