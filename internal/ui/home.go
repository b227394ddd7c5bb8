package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/api"
	"opora/internal/models"
	"opora/internal/reconcile"
)

// form field indexes for the create-ticket form.
const (
	formFirstName = iota
	formLastName
	formTitle
	formDescription
	formAttachment
	formFieldCount
)

var formLabels = [formFieldCount]string{"First Name", "Last Name", "Title", "Description", "Attachment path"}

// HomeScreen is the landing page. Admins see a notifications-style
// list of open tickets; users see their ongoing reports, an open
// report count badge refreshed on an interval, and the create form.
type HomeScreen struct {
	deps  Deps
	theme *Theme

	isAdmin   bool
	tickets   []models.Ticket
	openCount int
	selected  int
	listFocus bool

	inputs      [formFieldCount]textinput.Model
	focus       int
	attachments []api.AttachmentUpload

	submitting bool
	notice     string
	errText    string
}

type homeLoadedMsg struct {
	tickets   []models.Ticket
	openCount int
	err       error
}

type openCountMsg struct {
	count int
	err   error
}

type countTickMsg struct{}

type ticketCreatedMsg struct {
	created   api.CreatedTicket
	fieldErrs api.FieldErrors
	err       error
}

func NewHomeScreen(deps Deps, theme *Theme) *HomeScreen {
	s := &HomeScreen{
		deps:    deps,
		theme:   theme,
		isAdmin: deps.Store.Get().IsAdmin,
	}
	for i := range s.inputs {
		input := textinput.New()
		input.Placeholder = strings.ToLower(formLabels[i])
		s.inputs[i] = input
	}
	s.inputs[formFirstName].Focus()
	return s
}

func (s *HomeScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{s.load(), textinput.Blink}
	if !s.isAdmin {
		cmds = append(cmds, s.scheduleCountTick())
	}
	return tea.Batch(cmds...)
}

// load fetches the preview list: open admin tickets for admins, the
// user's own open reports (with the server-side count) otherwise.
func (s *HomeScreen) load() tea.Cmd {
	deps := s.deps
	if s.isAdmin {
		return func() tea.Msg {
			records, res, err := deps.API.AdminAll(cmdContext())
			if err != nil {
				return homeLoadedMsg{err: err}
			}
			if !res.OK() {
				return homeLoadedMsg{}
			}
			var open []models.Ticket
			for _, rec := range records {
				if rec.IsOpen {
					open = append(open, reconcile.Project(rec))
				}
			}
			return homeLoadedMsg{tickets: open}
		}
	}
	return func() tea.Msg {
		isOpen := true
		page, err := deps.API.MyTickets(cmdContext(), &isOpen)
		if err != nil {
			return homeLoadedMsg{err: err}
		}
		tickets := make([]models.Ticket, len(page.Results))
		for i, rec := range page.Results {
			tickets[i] = reconcile.Project(rec)
		}
		return homeLoadedMsg{tickets: tickets, openCount: page.Count}
	}
}

func (s *HomeScreen) fetchOpenCount() tea.Cmd {
	deps := s.deps
	return func() tea.Msg {
		isOpen := true
		page, err := deps.API.MyTickets(cmdContext(), &isOpen)
		if err != nil {
			return openCountMsg{err: err}
		}
		return openCountMsg{count: page.Count}
	}
}

func (s *HomeScreen) scheduleCountTick() tea.Cmd {
	return tea.Tick(s.deps.Cfg.CountInterval, func(time.Time) tea.Msg {
		return countTickMsg{}
	})
}

func (s *HomeScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)
	case homeLoadedMsg:
		if msg.err != nil {
			// Background load failure: keep whatever is shown.
			s.deps.Log.Debug("home load failed", "error", msg.err)
			return s, nil
		}
		s.tickets = msg.tickets
		if !s.isAdmin {
			s.openCount = msg.openCount
		}
		if s.selected >= len(s.tickets) {
			s.selected = 0
		}
		return s, nil
	case openCountMsg:
		if msg.err == nil {
			s.openCount = msg.count
		}
		return s, s.scheduleCountTick()
	case countTickMsg:
		return s, s.fetchOpenCount()
	case refreshMsg:
		return s, s.load()
	case ticketCreatedMsg:
		s.submitting = false
		if msg.err != nil {
			s.errText = "Network error: " + msg.err.Error()
			return s, nil
		}
		if len(msg.fieldErrs) > 0 {
			s.errText = flattenErrors(msg.fieldErrs)
			return s, nil
		}
		s.notice = fmt.Sprintf("Ticket created: %s", msg.created.UID)
		chat := NewChatScreen(s.deps, s.theme, msg.created.UID)
		return s, navigate(chat)
	}

	if !s.isAdmin && !s.listFocus {
		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *HomeScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
	switch msg.String() {
	case "ctrl+l":
		// Logout clears the stored session and routes to login.
		if err := s.deps.Store.Clear(); err != nil {
			s.errText = "Logout failed: " + err.Error()
			return s, nil
		}
		return s, navigate(NewLoginScreen(s.deps, s.theme))
	case "ctrl+o":
		return s, navigate(NewReportsScreen(s.deps, s.theme))
	case "ctrl+b":
		return s, navigate(NewBubbleSettingsScreen(s.deps, s.theme))
	case "ctrl+t":
		if s.isAdmin {
			return s, navigate(NewAdminScreen(s.deps, s.theme))
		}
	case "ctrl+r":
		return s, s.load()
	}

	if s.isAdmin || s.listFocus {
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.tickets)-1 {
				s.selected++
			}
		case "enter":
			if s.selected < len(s.tickets) {
				return s, navigate(NewChatScreen(s.deps, s.theme, s.tickets[s.selected].UID))
			}
		case "esc":
			s.listFocus = false
		}
		return s, nil
	}

	switch msg.String() {
	case "esc":
		if len(s.tickets) > 0 {
			s.listFocus = true
		}
		return s, nil
	case "tab", "down":
		s.setFocus((s.focus + 1) % formFieldCount)
		return s, nil
	case "shift+tab", "up":
		s.setFocus((s.focus + formFieldCount - 1) % formFieldCount)
		return s, nil
	case "enter":
		if s.focus == formAttachment {
			return s, s.addAttachment()
		}
		s.setFocus((s.focus + 1) % formFieldCount)
		return s, nil
	case "ctrl+x":
		if n := len(s.attachments); n > 0 {
			s.attachments = s.attachments[:n-1]
		}
		return s, nil
	case "ctrl+s":
		if s.submitting {
			return s, nil
		}
		return s, s.submit()
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *HomeScreen) setFocus(i int) {
	s.inputs[s.focus].Blur()
	s.focus = i
	s.inputs[s.focus].Focus()
}

func (s *HomeScreen) addAttachment() tea.Cmd {
	path := strings.TrimSpace(s.inputs[formAttachment].Value())
	if path == "" {
		return nil
	}
	upload, err := api.ReadAttachment(path)
	if err != nil {
		s.errText = err.Error()
		return nil
	}
	s.attachments = append(s.attachments, upload)
	s.inputs[formAttachment].SetValue("")
	s.errText = ""
	return nil
}

func (s *HomeScreen) submit() tea.Cmd {
	req := api.CreateTicketRequest{
		FirstName:   strings.TrimSpace(s.inputs[formFirstName].Value()),
		LastName:    strings.TrimSpace(s.inputs[formLastName].Value()),
		Title:       strings.TrimSpace(s.inputs[formTitle].Value()),
		Description: strings.TrimSpace(s.inputs[formDescription].Value()),
		Attachments: s.attachments,
	}
	if err := req.Validate(); err != nil {
		s.errText = err.Error()
		return nil
	}
	s.submitting = true
	s.errText = ""

	deps := s.deps
	return func() tea.Msg {
		created, fieldErrs, err := deps.Dispatcher.CreateTicket(cmdContext(), req)
		return ticketCreatedMsg{created: created, fieldErrs: fieldErrs, err: err}
	}
}

func (s *HomeScreen) View() string {
	var b strings.Builder
	if s.isAdmin {
		b.WriteString(s.theme.Header.Render("Admin Notifications") + "\n\n")
		if len(s.tickets) == 0 {
			b.WriteString(s.theme.Faint.Render("No pending tickets") + "\n")
		}
		b.WriteString(s.renderTickets())
		b.WriteString("\n" + s.theme.Help.Render("enter: open chat · ctrl+t: triage panel · ctrl+b: bubbles · ctrl+l: logout"))
		return b.String()
	}

	b.WriteString(s.theme.Header.Render("Report an issue") + "  ")
	b.WriteString(s.theme.SubHeader.Render("Open reports ") + s.theme.Badge.Render(fmt.Sprintf("%d", s.openCount)) + "\n\n")

	if len(s.tickets) > 0 {
		b.WriteString(s.theme.SubHeader.Render("Your ongoing reports") + "\n")
		b.WriteString(s.renderTickets())
		b.WriteString("\n")
	}

	for i := range s.inputs {
		b.WriteString(formLabels[i] + "\n" + s.inputs[i].View() + "\n")
	}
	for _, a := range s.attachments {
		b.WriteString(s.theme.Faint.Render(fmt.Sprintf("  attached: %s (%d bytes)", a.Name, len(a.Data))) + "\n")
	}
	if s.errText != "" {
		b.WriteString(s.theme.Error.Render(s.errText) + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Notice.Render(s.notice) + "\n")
	}
	if s.submitting {
		b.WriteString(s.theme.Faint.Render("Sending...") + "\n")
	}

	b.WriteString("\n" + s.theme.Help.Render("enter on attachment field: add file · ctrl+s: submit · ctrl+x: drop last attachment\nesc: browse reports · ctrl+o: all reports · ctrl+b: bubbles · ctrl+l: logout"))
	return b.String()
}

func (s *HomeScreen) renderTickets() string {
	var b strings.Builder
	for i, t := range s.tickets {
		line := t.Title
		if t.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d new)", t.UnreadCount)
		}
		line += "  " + t.FirstName + " " + t.LastName
		if t.LastMessage != "" {
			line += "  " + t.LastMessage
		}
		if (s.isAdmin || s.listFocus) && i == s.selected {
			line = s.theme.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func flattenErrors(fe api.FieldErrors) string {
	parts := make([]string, 0, len(fe))
	for field, msgs := range fe {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return strings.Join(parts, "; ")
}
