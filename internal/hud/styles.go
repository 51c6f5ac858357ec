package hud

import "github.com/charmbracelet/lipgloss"

var (
	colorTitle   = lipgloss.Color("#00c3ff")
	colorTarget  = lipgloss.Color("#f59e0b")
	colorGood    = lipgloss.Color("#22c55e")
	colorBad     = lipgloss.Color("#dc2626")
	colorDimmed  = lipgloss.Color("#6b7280")
	colorBorder  = lipgloss.Color("#4b5563")
	colorBarFull = lipgloss.Color("#7fff00")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	targetStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTarget)
	goodStyle   = lipgloss.NewStyle().Foreground(colorGood)
	badStyle    = lipgloss.NewStyle().Foreground(colorBad)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDimmed)
	barStyle    = lipgloss.NewStyle().Foreground(colorBarFull)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)
