// Package ui provides the visual styling for the clarity interactive CLI.
// Colors come in light/dark pairs and are selected once at startup.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors
	LightBackground = lipgloss.Color("#f7f6f3")
	LightForeground = lipgloss.Color("#1f2933")
	LightPrimary    = lipgloss.Color("#4c6ef5") // Indigo
	LightAccent     = lipgloss.Color("#12b886") // Teal
	LightSecondary  = lipgloss.Color("#e9ecef")
	LightMuted      = lipgloss.Color("#868e96")
	LightBorder     = lipgloss.Color("#dee2e6")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#16181d")
	DarkForeground = lipgloss.Color("#e9ecef")
	DarkPrimary    = lipgloss.Color("#748ffc") // Indigo (lifted)
	DarkAccent     = lipgloss.Color("#38d9a9") // Teal (lifted)
	DarkSecondary  = lipgloss.Color("#232730")
	DarkMuted      = lipgloss.Color("#5c636e")
	DarkBorder     = lipgloss.Color("#343a44")
	DarkCard       = lipgloss.Color("#1e222a")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#fa5252") // Red
	Success     = lipgloss.Color("#40c057") // Green
	Warning     = lipgloss.Color("#fab005") // Yellow
	Info        = lipgloss.Color("#339af0") // Blue
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeFromName resolves a configured theme name, falling back to
// terminal detection for anything unrecognized.
func ThemeFromName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme auto-detects based on the terminal, defaulting to dark.
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; ANSI indexes 0-6 and 8
	// are dark backgrounds.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
				return LightTheme()
			}
		}
	}

	if os.Getenv("CLARITY_LIGHT_MODE") == "1" {
		return LightTheme()
	}

	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Sidebar lipgloss.Style
	Divider lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Chat
	Prompt        lipgloss.Style
	UserMessage   lipgloss.Style
	CoachResponse lipgloss.Style
	SystemNote    lipgloss.Style
	Pending       lipgloss.Style
	Failed        lipgloss.Style
	StageLabel    lipgloss.Style
	SignalBadge   lipgloss.Style

	// Sidebar
	SidebarGroup    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Offline lipgloss.Style

	// Toasts
	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastError   lipgloss.Style

	// Components
	Spinner lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	toast := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	return Styles{
		Theme: theme,

		// Layout styles
		App: lipgloss.NewStyle().
			Background(theme.Background).
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Sidebar: lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			PaddingRight(1),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		// Text styles
		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		// Chat styles
		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		UserMessage: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		CoachResponse: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent),

		SystemNote: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true).
			PaddingLeft(2),

		Pending: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Failed: lipgloss.NewStyle().
			Foreground(Destructive),

		StageLabel: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Italic(true),

		SignalBadge: lipgloss.NewStyle().
			Background(theme.Secondary).
			Foreground(theme.Primary).
			Padding(0, 1),

		// Sidebar styles
		SidebarGroup: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Bold(true).
			MarginTop(1),

		SidebarItem: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(1),

		SidebarSelected: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			PaddingLeft(1),

		// Status styles
		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Offline: lipgloss.NewStyle().
			Background(Warning).
			Foreground(lipgloss.Color("#1f2933")).
			Padding(0, 1).
			Bold(true),

		// Toast styles
		ToastInfo: toast.
			BorderForeground(Info).
			Foreground(theme.Foreground),

		ToastSuccess: toast.
			BorderForeground(Success).
			Foreground(theme.Foreground),

		ToastError: toast.
			BorderForeground(Destructive).
			Foreground(theme.Foreground),

		// Component styles
		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),
	}
}

// DefaultStyles returns styles with the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", width))
}
