package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/content"
	"opora/internal/models"
)

const (
	prefUserBg = iota
	prefUserText
	prefAdminBg
	prefAdminText
	prefFieldCount
)

var prefLabels = [prefFieldCount]string{
	"User bubble background (hex)",
	"User bubble text color (hex)",
	"Admin bubble background (hex)",
	"Admin bubble text color (hex)",
}

var prefPlaceholders = [prefFieldCount]string{
	defaultUserBackground,
	defaultUserText,
	defaultAdminBackground,
	defaultAdminText,
}

// BubbleSettingsScreen edits the locally stored chat bubble colors.
// They never leave the device.
type BubbleSettingsScreen struct {
	deps  Deps
	theme *Theme

	inputs [prefFieldCount]textinput.Model
	focus  int
	notice string
	isErr  bool
}

func NewBubbleSettingsScreen(deps Deps, theme *Theme) *BubbleSettingsScreen {
	s := &BubbleSettingsScreen{deps: deps, theme: theme}
	prefs := deps.Store.BubblePrefs()
	values := [prefFieldCount]string{
		prefs.UserBackground, prefs.UserText, prefs.AdminBackground, prefs.AdminText,
	}
	for i := range s.inputs {
		input := textinput.New()
		input.Placeholder = prefPlaceholders[i]
		input.SetValue(values[i])
		s.inputs[i] = input
	}
	s.inputs[prefUserBg].Focus()
	return s
}

func (s *BubbleSettingsScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *BubbleSettingsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, navigate(NewHomeScreen(s.deps, s.theme))
		case "tab", "down":
			s.setFocus((s.focus + 1) % prefFieldCount)
			return s, nil
		case "shift+tab", "up":
			s.setFocus((s.focus + prefFieldCount - 1) % prefFieldCount)
			return s, nil
		case "enter":
			return s, s.save()
		}
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *BubbleSettingsScreen) setFocus(i int) {
	s.inputs[s.focus].Blur()
	s.focus = i
	s.inputs[s.focus].Focus()
}

func (s *BubbleSettingsScreen) save() tea.Cmd {
	prefs := models.BubblePrefs{
		UserBackground:  strings.TrimSpace(s.inputs[prefUserBg].Value()),
		UserText:        strings.TrimSpace(s.inputs[prefUserText].Value()),
		AdminBackground: strings.TrimSpace(s.inputs[prefAdminBg].Value()),
		AdminText:       strings.TrimSpace(s.inputs[prefAdminText].Value()),
	}
	for _, v := range []string{prefs.UserBackground, prefs.UserText, prefs.AdminBackground, prefs.AdminText} {
		if err := content.ValidateHexColor(v); err != nil {
			s.notice = err.Error()
			s.isErr = true
			return nil
		}
	}
	if err := s.deps.Store.SetBubblePrefs(prefs); err != nil {
		s.notice = "Failed to save preferences"
		s.isErr = true
		return nil
	}
	s.notice = "Bubble preferences saved."
	s.isErr = false
	return func() tea.Msg { return themeChangedMsg{} }
}

func (s *BubbleSettingsScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("Bubble Settings") + "\n\n")
	for i := range s.inputs {
		b.WriteString(prefLabels[i] + "\n" + s.inputs[i].View() + "\n")
	}
	if s.notice != "" {
		style := s.theme.Notice
		if s.isErr {
			style = s.theme.Error
		}
		b.WriteString(style.Render(s.notice) + "\n")
	}
	b.WriteString("\n")
	b.WriteString("Preview: " + s.theme.UserBubble.Render("user message") + " " + s.theme.AdminBubble.Render("admin reply") + "\n")
	b.WriteString(s.theme.Help.Render("enter: save · esc: home"))
	return b.String()
}
