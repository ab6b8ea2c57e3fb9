package render

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D7FF") // cyan: tool names
	colorSuccess = lipgloss.Color("#87FF5F") // green: success
	colorWarning = lipgloss.Color("#FFD700") // yellow: findings count
	colorDanger  = lipgloss.Color("#FF5555") // red: failure
	colorMuted   = lipgloss.Color("#555577") // dim gray: hints / stderr
	colorBorder  = lipgloss.Color("#333355") // default border
	colorTitle   = lipgloss.Color("#FFFFFF") // headings
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	toolStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	countStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// summaryBoxStyle は run の結果サマリーを囲む枠。
var summaryBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder).
	Padding(0, 1)
