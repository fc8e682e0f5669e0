package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/debtboard/internal/debt"
)

// Catppuccin Mocha, the subset the dashboard draws with.
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

const (
	colorAccent  = colorMauve
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
	colorMuted   = colorOverlay0
)

var (
	titleStyle       = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	textStyle        = lipgloss.NewStyle().Foreground(colorText)
	cursorStyle      = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
	avatarStyle      = lipgloss.NewStyle().Foreground(colorMantle).Background(colorBlue).Bold(true)
	placeholderStyle = lipgloss.NewStyle().Foreground(colorSurface1)
	badgeStyle       = lipgloss.NewStyle().Foreground(colorMantle).Background(colorRed).Padding(0, 1)
	payStyle         = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	errorBannerStyle = lipgloss.NewStyle().Foreground(colorMantle).Background(colorError).Padding(0, 1)
	footerStyle      = lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorSurface0)
	keyStyle         = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	helpDescStyle    = lipgloss.NewStyle().Foreground(colorSubtext0)
)

// severityColor maps a debt tier to its amount colour.
func severityColor(s debt.Severity) lipgloss.Color {
	switch s {
	case debt.SeverityHigh:
		return colorRed
	case debt.SeverityElevated:
		return colorPeach
	case debt.SeverityLow:
		return colorYellow
	default:
		return colorSubtext0
	}
}

func toastColor(s Severity) lipgloss.Color {
	switch s {
	case SeveritySuccess:
		return colorSuccess
	case SeverityError:
		return colorError
	default:
		return colorInfo
	}
}
