package ui

import (
	"github.com/charmbracelet/lipgloss"

	"opora/internal/content"
	"opora/internal/models"
)

// Default bubble colors, matching the placeholders the settings screen
// suggests. Stored preferences override them per sender.
const (
	defaultUserBackground  = "#e6f7ff"
	defaultUserText        = "#0b2f6b"
	defaultAdminBackground = "#2b6cb0"
	defaultAdminText       = "#ffffff"
)

// Theme holds the lipgloss styles shared by every screen. Chat bubble
// colors come from the locally stored preferences; the chrome styles
// are fixed.
type Theme struct {
	Header      lipgloss.Style
	SubHeader   lipgloss.Style
	Faint       lipgloss.Style
	Error       lipgloss.Style
	Notice      lipgloss.Style
	Badge       lipgloss.Style
	Completed   lipgloss.Style
	Selected    lipgloss.Style
	Help        lipgloss.Style
	UserBubble  lipgloss.Style
	AdminBubble lipgloss.Style
}

// NewTheme builds the style set. Invalid stored hex values fall back
// to the defaults rather than producing a broken palette.
func NewTheme(prefs models.BubblePrefs) Theme {
	userBg := pickColor(prefs.UserBackground, defaultUserBackground)
	userFg := pickColor(prefs.UserText, defaultUserText)
	adminBg := pickColor(prefs.AdminBackground, defaultAdminBackground)
	adminFg := pickColor(prefs.AdminText, defaultAdminText)

	return Theme{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		SubHeader: lipgloss.NewStyle().Bold(true),
		Faint:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Badge:     lipgloss.NewStyle().Background(lipgloss.Color("196")).Foreground(lipgloss.Color("15")).Padding(0, 1),
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		Selected:  lipgloss.NewStyle().Background(lipgloss.Color("237")).Foreground(lipgloss.Color("15")),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		UserBubble: lipgloss.NewStyle().
			Background(lipgloss.Color(userBg)).
			Foreground(lipgloss.Color(userFg)).
			Padding(0, 1),
		AdminBubble: lipgloss.NewStyle().
			Background(lipgloss.Color(adminBg)).
			Foreground(lipgloss.Color(adminFg)).
			Padding(0, 1),
	}
}

func pickColor(stored, fallback string) string {
	if stored == "" || content.ValidateHexColor(stored) != nil {
		return fallback
	}
	return stored
}

// BubbleStyle returns the style for a message sender.
func (t Theme) BubbleStyle(sender models.Sender) lipgloss.Style {
	if sender == models.SenderAdmin {
		return t.AdminBubble
	}
	return t.UserBubble
}
