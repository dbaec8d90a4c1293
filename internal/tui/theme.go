package tui

import "github.com/charmbracelet/lipgloss"

// Theme switching: "auto" follows the terminal background via adaptive
// colors; "light" and "dark" pin the palette. The TUI must stay readable on
// both backgrounds, so auto is the default.

type theme struct {
	mode string

	title     lipgloss.Style
	tab       lipgloss.Style
	tabActive lipgloss.Style
	tabFlash  lipgloss.Style
	item      lipgloss.Style
	itemDone  lipgloss.Style
	itemDying lipgloss.Style
	cursor    lipgloss.Style
	success   lipgloss.Style
	errText   lipgloss.Style
	muted     lipgloss.Style
	toast     lipgloss.Style
	input     lipgloss.Style
}

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func newTheme(mode string) theme {
	var (
		accent  lipgloss.TerminalColor
		good    lipgloss.TerminalColor
		bad     lipgloss.TerminalColor
		dim     lipgloss.TerminalColor
		border  lipgloss.TerminalColor
		flashBg lipgloss.TerminalColor
	)
	switch mode {
	case "light":
		accent, good, bad = lipgloss.Color("26"), lipgloss.Color("28"), lipgloss.Color("124")
		dim, border, flashBg = lipgloss.Color("245"), lipgloss.Color("250"), lipgloss.Color("222")
	case "dark":
		accent, good, bad = lipgloss.Color("39"), lipgloss.Color("42"), lipgloss.Color("203")
		dim, border, flashBg = lipgloss.Color("243"), lipgloss.Color("238"), lipgloss.Color("58")
	default:
		mode = "auto"
		accent, good, bad = ac("26", "39"), ac("28", "42"), ac("124", "203")
		dim, border, flashBg = ac("245", "243"), ac("250", "238"), ac("222", "58")
	}

	return theme{
		mode:      mode,
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		tab:       lipgloss.NewStyle().Foreground(dim),
		tabActive: lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true),
		tabFlash:  lipgloss.NewStyle().Bold(true).Background(flashBg),
		item:      lipgloss.NewStyle(),
		itemDone:  lipgloss.NewStyle().Foreground(dim).Strikethrough(true),
		itemDying: lipgloss.NewStyle().Foreground(bad).Faint(true),
		cursor:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		success:   lipgloss.NewStyle().Foreground(good),
		errText:   lipgloss.NewStyle().Foreground(bad),
		muted:     lipgloss.NewStyle().Foreground(dim),
		toast: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

// nextThemeMode cycles auto -> light -> dark -> auto.
func nextThemeMode(mode string) string {
	switch mode {
	case "auto":
		return "light"
	case "light":
		return "dark"
	default:
		return "auto"
	}
}
