package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/panels/internal/notify"
)

const (
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext  lipgloss.Color = "#a6adc8"
	colorOverlay  lipgloss.Color = "#6c7086"
	colorSurface  lipgloss.Color = "#313244"
	colorLavender lipgloss.Color = "#b4befe"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorTeal     lipgloss.Color = "#94e2d5"
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(colorSubtext)
	activeTabStyle = tabStyle.Foreground(colorLavender).Bold(true).Underline(true)
	titleStyle     = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(colorSubtext).Width(12)
	focusStyle     = lipgloss.NewStyle().Foreground(colorLavender)
	dimStyle       = lipgloss.NewStyle().Foreground(colorOverlay)
	cursorStyle    = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	resultStyle    = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	bodyStyle      = lipgloss.NewStyle().Padding(1, 2)
	footerStyle    = lipgloss.NewStyle().BorderTop(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorSurface)
)

func toastStyle(v notify.Variant) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch v {
	case notify.VariantError:
		return s.Foreground(colorRed)
	case notify.VariantWarning:
		return s.Foreground(colorYellow)
	case notify.VariantSuccess:
		return s.Foreground(colorGreen)
	default:
		return s.Foreground(colorTeal)
	}
}
