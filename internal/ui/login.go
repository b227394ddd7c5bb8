package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/api"
	"opora/internal/models"
)

type LoginScreen struct {
	deps  Deps
	theme *Theme

	username textinput.Model
	password textinput.Model
	focus    int

	loading   bool
	fieldErrs api.FieldErrors
	notice    string
}

type loginResultMsg struct {
	session   models.Session
	fieldErrs api.FieldErrors
	err       error
}

func NewLoginScreen(deps Deps, theme *Theme) *LoginScreen {
	username := textinput.New()
	username.Placeholder = "username"
	username.Focus()
	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	return &LoginScreen{
		deps:     deps,
		theme:    theme,
		username: username,
		password: password,
	}
}

func (s *LoginScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *LoginScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			s.cycleFocus()
			return s, nil
		case "enter":
			if s.loading {
				return s, nil
			}
			return s, s.submit()
		case "ctrl+r":
			return s, navigate(NewRegisterScreen(s.deps, s.theme))
		}
	case loginResultMsg:
		s.loading = false
		if msg.err != nil {
			s.notice = "Network error: " + msg.err.Error()
			return s, nil
		}
		if len(msg.fieldErrs) > 0 {
			s.fieldErrs = msg.fieldErrs
			return s, nil
		}
		if err := s.deps.Store.Set(msg.session); err != nil {
			s.notice = "Failed to store session: " + err.Error()
			return s, nil
		}
		return s, navigate(NewHomeScreen(s.deps, s.theme))
	}

	var cmd tea.Cmd
	if s.focus == 0 {
		s.username, cmd = s.username.Update(msg)
	} else {
		s.password, cmd = s.password.Update(msg)
	}
	return s, cmd
}

func (s *LoginScreen) cycleFocus() {
	s.focus = (s.focus + 1) % 2
	if s.focus == 0 {
		s.username.Focus()
		s.password.Blur()
	} else {
		s.password.Focus()
		s.username.Blur()
	}
}

func (s *LoginScreen) submit() tea.Cmd {
	username := strings.TrimSpace(s.username.Value())
	password := s.password.Value()
	if username == "" || password == "" {
		s.notice = "Username and password required"
		return nil
	}
	s.loading = true
	s.notice = ""
	s.fieldErrs = nil

	deps := s.deps
	return func() tea.Msg {
		session, fieldErrs, err := deps.API.Login(cmdContext(), username, password)
		return loginResultMsg{session: session, fieldErrs: fieldErrs, err: err}
	}
}

func (s *LoginScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("Login") + "\n\n")

	b.WriteString("Username\n" + s.username.View() + "\n")
	if msg := s.fieldErrs.Field("username"); msg != "" {
		b.WriteString(s.theme.Error.Render(msg) + "\n")
	}
	b.WriteString("Password\n" + s.password.View() + "\n")
	if msg := s.fieldErrs.Field("password"); msg != "" {
		b.WriteString(s.theme.Error.Render(msg) + "\n")
	}
	if msg := s.fieldErrs.Field("detail"); msg != "" {
		b.WriteString(s.theme.Error.Render(msg) + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Error.Render(s.notice) + "\n")
	}

	b.WriteString("\n")
	if s.loading {
		b.WriteString(s.theme.Faint.Render("Logging in...") + "\n")
	}
	b.WriteString(s.theme.Help.Render("enter: login · ctrl+r: register · ctrl+c: quit"))
	return b.String()
}
