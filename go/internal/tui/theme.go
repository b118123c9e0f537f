package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the checkout screens, in ANSI 256-color codes
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color

	CountdownNormal  lipgloss.Color
	CountdownWarning lipgloss.Color

	Info    lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		NormalText:       lipgloss.Color("252"),
		FaintText:        lipgloss.Color("245"),
		Accent:           lipgloss.Color("42"),
		Border:           lipgloss.Color("240"),
		CountdownNormal:  lipgloss.Color("42"),
		CountdownWarning: lipgloss.Color("203"),
		Info:             lipgloss.Color("39"),
		Success:          lipgloss.Color("42"),
		Error:            lipgloss.Color("203"),
	}
}

type styles struct {
	title     lipgloss.Style
	faint     lipgloss.Style
	selected  lipgloss.Style
	countdown lipgloss.Style
	warning   lipgloss.Style
	dialog    lipgloss.Style
	errorText lipgloss.Style
	info      lipgloss.Style
	success   lipgloss.Style
	help      lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		faint:     lipgloss.NewStyle().Foreground(theme.FaintText),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(theme.NormalText),
		countdown: lipgloss.NewStyle().Bold(true).Foreground(theme.CountdownNormal),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(theme.CountdownWarning),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(1, 2),
		errorText: lipgloss.NewStyle().Foreground(theme.Error),
		info:      lipgloss.NewStyle().Foreground(theme.Info),
		success:   lipgloss.NewStyle().Foreground(theme.Success),
		help:      lipgloss.NewStyle().Foreground(theme.FaintText).Italic(true),
	}
}
