package tui

import "github.com/charmbracelet/lipgloss"

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styleNotice = lipgloss.NewStyle().Faint(true).Italic(true)
	styleTool   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleToolOK = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	styleAsk    = lipgloss.NewStyle().Foreground(lipgloss.Color("207")).Bold(true)
	styleHint   = lipgloss.NewStyle().Faint(true)

	stateStyles = map[string]lipgloss.Style{
		"connected":    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		"connecting":   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"reconnecting": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"disconnected": lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		"idle":         lipgloss.NewStyle().Faint(true),
	}
)

func stateBadge(state string) string {
	if style, ok := stateStyles[state]; ok {
		return style.Render("● " + state)
	}
	return "● " + state
}
