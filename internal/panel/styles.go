package panel

import "github.com/charmbracelet/lipgloss"

var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	ColorTextDim = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	countStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Underline(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	visitStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	urlStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	selectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	trackStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)

	rangeStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	handleStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	activeHandleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true).
				Reverse(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)
