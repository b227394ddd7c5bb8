package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/models"
	"opora/internal/reconcile"
)

// AdminScreen is the triage panel: pending/all/completed listings from
// the reconciler, inline replies, close with an explicit confirmation
// step, reopen, and assign-to-me.
type AdminScreen struct {
	deps  Deps
	theme *Theme

	identity models.Identity
	notAdmin bool

	filter   models.StatusFilter
	tickets  []models.Ticket
	diag     reconcile.Diag
	selected int

	reply        textinput.Model
	confirmClose bool
	sending      bool
	notice       string
}

type adminLoadedMsg struct {
	tickets []models.Ticket
	diag    reconcile.Diag
	err     error
}

type identityMsg struct {
	identity models.Identity
	err      error
}

type actionDoneMsg struct {
	isOpen *bool
	err    error
}

func NewAdminScreen(deps Deps, theme *Theme) *AdminScreen {
	reply := textinput.New()
	reply.Placeholder = "write reply..."
	reply.Focus()
	return &AdminScreen{
		deps:   deps,
		theme:  theme,
		filter: models.FilterNotComplete,
		reply:  reply,
	}
}

func (s *AdminScreen) Init() tea.Cmd {
	return tea.Batch(s.checkIdentity(), s.load(), textinput.Blink)
}

func (s *AdminScreen) checkIdentity() tea.Cmd {
	deps := s.deps
	return func() tea.Msg {
		identity, err := deps.API.Me(cmdContext())
		return identityMsg{identity: identity, err: err}
	}
}

func (s *AdminScreen) load() tea.Cmd {
	deps := s.deps
	filter := s.filter
	return func() tea.Msg {
		tickets, diag, err := deps.Reconciler.Load(cmdContext(), filter)
		return adminLoadedMsg{tickets: tickets, diag: diag, err: err}
	}
}

func (s *AdminScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)
	case identityMsg:
		if msg.err == nil {
			s.identity = msg.identity
			s.notAdmin = !msg.identity.IsAdmin()
		}
		return s, nil
	case adminLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, models.ErrNotAuthenticated) {
				return s, navigate(NewLoginScreen(s.deps, s.theme))
			}
			return s, nil
		}
		s.tickets = msg.tickets
		s.diag = msg.diag
		if s.selected >= len(s.tickets) {
			s.selected = 0
		}
		return s, nil
	case refreshMsg:
		return s, s.load()
	case actionDoneMsg:
		s.sending = false
		if msg.err != nil {
			s.notice = "Action failed: " + msg.err.Error()
			return s, nil
		}
		s.notice = "Action performed"
		// The local open/closed flip is a UI nicety; the reload that
		// follows observes the authoritative server state.
		if msg.isOpen != nil && s.selected < len(s.tickets) {
			s.tickets[s.selected].IsOpen = *msg.isOpen
		}
		return s, s.load()
	case messageSentMsg:
		s.sending = false
		if msg.err != nil {
			s.notice = "Reply failed: " + msg.err.Error()
			return s, nil
		}
		s.notice = "Reply sent"
		s.reply.SetValue("")
		return s, s.load()
	}

	var cmd tea.Cmd
	s.reply, cmd = s.reply.Update(msg)
	return s, cmd
}

func (s *AdminScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
	// A pending close confirmation swallows everything except the
	// decision keys.
	if s.confirmClose {
		switch msg.String() {
		case "y", "Y":
			s.confirmClose = false
			return s, s.close()
		default:
			s.confirmClose = false
			s.notice = "Close cancelled"
			return s, nil
		}
	}

	switch msg.String() {
	case "esc":
		return s, navigate(NewHomeScreen(s.deps, s.theme))
	case "ctrl+r":
		return s, s.load()
	case "ctrl+f":
		s.filter = nextFilter(s.filter)
		return s, s.load()
	case "up", "ctrl+p":
		if s.selected > 0 {
			s.selected--
		}
		return s, nil
	case "down", "ctrl+n":
		if s.selected < len(s.tickets)-1 {
			s.selected++
		}
		return s, nil
	case "ctrl+d":
		if s.current() != nil {
			// Close requires an explicit confirmation before any
			// request goes out; reopen does not.
			s.confirmClose = true
		}
		return s, nil
	case "ctrl+u":
		return s, s.reopen()
	case "ctrl+a":
		return s, s.assign()
	case "enter":
		if strings.TrimSpace(s.reply.Value()) != "" {
			return s, s.sendReply()
		}
		if t := s.current(); t != nil {
			return s, navigate(NewChatScreen(s.deps, s.theme, t.UID))
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.reply, cmd = s.reply.Update(msg)
	return s, cmd
}

func (s *AdminScreen) current() *models.Ticket {
	if s.selected >= len(s.tickets) {
		return nil
	}
	return &s.tickets[s.selected]
}

func (s *AdminScreen) close() tea.Cmd {
	t := s.current()
	if t == nil {
		return nil
	}
	s.sending = true
	deps := s.deps
	uid := t.UID
	return func() tea.Msg {
		isOpen, err := deps.Dispatcher.Close(cmdContext(), uid, true)
		return actionDoneMsg{isOpen: &isOpen, err: err}
	}
}

func (s *AdminScreen) reopen() tea.Cmd {
	t := s.current()
	if t == nil {
		return nil
	}
	s.sending = true
	deps := s.deps
	uid := t.UID
	return func() tea.Msg {
		isOpen, err := deps.Dispatcher.Reopen(cmdContext(), uid)
		return actionDoneMsg{isOpen: &isOpen, err: err}
	}
}

func (s *AdminScreen) assign() tea.Cmd {
	t := s.current()
	if t == nil {
		return nil
	}
	session := s.deps.Store.Get()
	if session.UserID == "" {
		s.notice = "No user id in session"
		return nil
	}
	s.sending = true
	deps := s.deps
	uid := t.UID
	return func() tea.Msg {
		return actionDoneMsg{err: deps.Dispatcher.Assign(cmdContext(), uid, session.UserID)}
	}
}

func (s *AdminScreen) sendReply() tea.Cmd {
	t := s.current()
	if t == nil {
		return nil
	}
	text := strings.TrimSpace(s.reply.Value())
	if text == "" || s.sending {
		return nil
	}
	s.sending = true
	deps := s.deps
	uid := t.UID
	return func() tea.Msg {
		return messageSentMsg{err: deps.Dispatcher.SendMessage(cmdContext(), uid, models.SenderAdmin, text)}
	}
}

func nextFilter(f models.StatusFilter) models.StatusFilter {
	switch f {
	case models.FilterNotComplete:
		return models.FilterAll
	case models.FilterAll:
		return models.FilterCompleted
	default:
		return models.FilterNotComplete
	}
}

func (s *AdminScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("Admin - Tickets") + "  ")
	b.WriteString(s.theme.Faint.Render("filter: "+string(s.filter)) + "\n")
	if s.identity.Username != "" {
		b.WriteString(s.theme.Faint.Render(fmt.Sprintf("Logged as: %s (staff: %t)", s.identity.Username, s.identity.IsStaff)) + "\n")
	}
	if s.notAdmin {
		b.WriteString(s.theme.Error.Render("Your account is not marked as staff/admin on the server.") + "\n")
		return b.String()
	}
	if s.diag.NotAuthorized {
		b.WriteString(s.theme.Error.Render("Not authorized: you need admin credentials to view tickets") + "\n")
	}
	b.WriteString(s.theme.Faint.Render(fmt.Sprintf("Loaded: %d (status %d)", s.diag.Count, s.diag.Status)) + "\n\n")

	if len(s.tickets) == 0 {
		b.WriteString(s.theme.Faint.Render("No tickets") + "\n")
	}
	for i, t := range s.tickets {
		line := t.Title
		if t.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d new)", t.UnreadCount)
		}
		line += "  " + t.FirstName + " " + t.LastName
		if !t.IsOpen {
			line += "  " + s.theme.Completed.Render("closed")
		}
		if t.LastMessage != "" {
			line += "\n    " + s.theme.Faint.Render(t.LastMessage)
		}
		if i == s.selected {
			line = s.theme.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + s.reply.View() + "\n")
	if s.confirmClose {
		if t := s.current(); t != nil {
			b.WriteString(s.theme.Error.Render(fmt.Sprintf("Close ticket %q? (y/N)", t.Title)) + "\n")
		}
	}
	if s.sending {
		b.WriteString(s.theme.Faint.Render("Working...") + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Notice.Render(s.notice) + "\n")
	}
	b.WriteString(s.theme.Help.Render("enter: reply/open chat · ctrl+d: close · ctrl+u: reopen · ctrl+a: assign to me\nctrl+f: cycle filter · ctrl+r: refresh · esc: home"))
	return b.String()
}
