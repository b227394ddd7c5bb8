package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/api"
	"opora/internal/models"
)

// field indexes into RegisterScreen.inputs.
const (
	regUsername = iota
	regFirstName
	regLastName
	regEmail
	regPassword
	regFieldCount
)

var regLabels = [regFieldCount]string{"Username", "First Name", "Last Name", "Email", "Password"}
var regErrorKeys = [regFieldCount]string{"username", "first_name", "last_name", "email", "password"}

type RegisterScreen struct {
	deps  Deps
	theme *Theme

	inputs [regFieldCount]textinput.Model
	focus  int

	loading   bool
	fieldErrs api.FieldErrors
	notice    string
}

type registerResultMsg struct {
	session   models.Session
	fieldErrs api.FieldErrors
	err       error
}

func NewRegisterScreen(deps Deps, theme *Theme) *RegisterScreen {
	s := &RegisterScreen{deps: deps, theme: theme}
	for i := range s.inputs {
		input := textinput.New()
		input.Placeholder = strings.ToLower(regLabels[i])
		if i == regPassword {
			input.EchoMode = textinput.EchoPassword
		}
		s.inputs[i] = input
	}
	s.inputs[regUsername].Focus()
	return s
}

func (s *RegisterScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *RegisterScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			s.setFocus((s.focus + 1) % regFieldCount)
			return s, nil
		case "shift+tab", "up":
			s.setFocus((s.focus + regFieldCount - 1) % regFieldCount)
			return s, nil
		case "enter":
			if s.loading {
				return s, nil
			}
			return s, s.submit()
		case "esc":
			return s, navigate(NewLoginScreen(s.deps, s.theme))
		}
	case registerResultMsg:
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
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *RegisterScreen) setFocus(i int) {
	s.inputs[s.focus].Blur()
	s.focus = i
	s.inputs[s.focus].Focus()
}

func (s *RegisterScreen) submit() tea.Cmd {
	req := api.RegisterRequest{
		Username:  strings.TrimSpace(s.inputs[regUsername].Value()),
		FirstName: strings.TrimSpace(s.inputs[regFirstName].Value()),
		LastName:  strings.TrimSpace(s.inputs[regLastName].Value()),
		Email:     strings.TrimSpace(s.inputs[regEmail].Value()),
		Password:  s.inputs[regPassword].Value(),
	}
	if req.Username == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		s.notice = "All fields are required"
		return nil
	}
	s.loading = true
	s.notice = ""
	s.fieldErrs = nil

	deps := s.deps
	return func() tea.Msg {
		session, fieldErrs, err := deps.API.Register(cmdContext(), req)
		return registerResultMsg{session: session, fieldErrs: fieldErrs, err: err}
	}
}

func (s *RegisterScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("Register") + "\n\n")

	for i := range s.inputs {
		b.WriteString(regLabels[i] + "\n" + s.inputs[i].View() + "\n")
		if msg := s.fieldErrs.Field(regErrorKeys[i]); msg != "" {
			b.WriteString(s.theme.Error.Render(msg) + "\n")
		}
	}
	if msg := s.fieldErrs.Field("detail"); msg != "" {
		b.WriteString(s.theme.Error.Render(msg) + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Error.Render(s.notice) + "\n")
	}

	b.WriteString("\n")
	if s.loading {
		b.WriteString(s.theme.Faint.Render("Registering...") + "\n")
	}
	b.WriteString(s.theme.Help.Render("enter: register · esc: back to login"))
	return b.String()
}
