package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/content"
	"opora/internal/filecache"
	"opora/internal/models"
	"opora/internal/poll"
)

// ChatScreen shows one ticket's thread and keeps it fresh through the
// generation-tagged poller. A failed refresh never clears the
// displayed messages; the last applied snapshot stays up.
type ChatScreen struct {
	deps  Deps
	theme *Theme

	uid     string
	isAdmin bool
	poller  *poll.Poller
	state   poll.State

	compose textinput.Model
	sending bool
	notice  string
}

type snapshotMsg struct {
	outcome poll.Outcome
}

type pollTickMsg struct{}

type messageSentMsg struct {
	err error
}

type attachmentsSavedMsg struct {
	paths []string
	err   error
}

func NewChatScreen(deps Deps, theme *Theme, ticketUID string) *ChatScreen {
	session := deps.Store.Get()
	compose := textinput.New()
	compose.Placeholder = "message"
	compose.Focus()

	poller := poll.New(deps.API.TicketDetail, session.IsAdmin, deps.Log)
	poller.Reset(ticketUID)

	return &ChatScreen{
		deps:    deps,
		theme:   theme,
		uid:     ticketUID,
		isAdmin: session.IsAdmin,
		poller:  poller,
		compose: compose,
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	return tea.Batch(s.fetch(), textinput.Blink)
}

func (s *ChatScreen) fetch() tea.Cmd {
	poller := s.poller
	return func() tea.Msg {
		return snapshotMsg{outcome: poller.FetchOnce(cmdContext())}
	}
}

func (s *ChatScreen) scheduleTick() tea.Cmd {
	return tea.Tick(s.deps.Cfg.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (s *ChatScreen) canCompose() bool {
	// Before the first snapshot the ticket status is unknown; sends
	// wait until the server has spoken.
	return s.state.Ready && models.CanCompose(s.isAdmin, s.state.IsOpen)
}

func (s *ChatScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, navigate(NewHomeScreen(s.deps, s.theme))
		case "ctrl+e":
			ticket := s.uid
			if s.state.TicketNumber > 0 {
				ticket = fmt.Sprintf("%d", s.state.TicketNumber)
			}
			return s, navigate(NewReceiptScreen(s.deps, s.theme, ticket))
		case "ctrl+d":
			return s, s.saveAttachments()
		case "enter":
			return s, s.send()
		}
	case snapshotMsg:
		if msg.outcome == poll.OutcomeApplied {
			s.state = s.poller.State()
		}
		// Skipped and stale outcomes leave the displayed state alone.
		return s, s.scheduleTick()
	case pollTickMsg:
		return s, s.fetch()
	case refreshMsg:
		return s, s.fetch()
	case attachmentsSavedMsg:
		if msg.err != nil {
			s.notice = "Download failed: " + msg.err.Error()
		} else if len(msg.paths) == 0 {
			s.notice = "No attachments to save"
		} else {
			s.notice = fmt.Sprintf("Saved %d attachment(s) to %s", len(msg.paths), filepath.Dir(msg.paths[0]))
		}
		return s, nil
	case messageSentMsg:
		s.sending = false
		if msg.err != nil {
			s.notice = "Send failed: " + msg.err.Error()
			return s, nil
		}
		s.compose.SetValue("")
		s.notice = ""
		return s, s.fetch()
	}

	var cmd tea.Cmd
	s.compose, cmd = s.compose.Update(msg)
	return s, cmd
}

// saveAttachments downloads every listed attachment into the local
// content-addressed cache. Already-cached files are not re-fetched.
func (s *ChatScreen) saveAttachments() tea.Cmd {
	attachments := s.state.Attachments
	if len(attachments) == 0 || s.deps.Files == nil {
		return nil
	}
	deps := s.deps
	return func() tea.Msg {
		var paths []string
		for _, a := range attachments {
			body, err := deps.API.DownloadAttachment(cmdContext(), a.File)
			if err != nil {
				return attachmentsSavedMsg{paths: paths, err: err}
			}
			path, err := deps.Files.Save(body, filecache.Key(a.File), a.Filename)
			_ = body.Close()
			if err != nil {
				return attachmentsSavedMsg{paths: paths, err: err}
			}
			paths = append(paths, path)
		}
		return attachmentsSavedMsg{paths: paths}
	}
}

// send is a no-op without an API call when composition is gated off
// (closed ticket, non-admin viewer) or the input is empty.
func (s *ChatScreen) send() tea.Cmd {
	text := strings.TrimSpace(s.compose.Value())
	if text == "" || s.sending || !s.canCompose() {
		return nil
	}
	s.sending = true

	sender := models.SenderUser
	if s.isAdmin {
		sender = models.SenderAdmin
	}
	deps := s.deps
	uid := s.uid
	return func() tea.Msg {
		return messageSentMsg{err: deps.Dispatcher.SendMessage(cmdContext(), uid, sender, text)}
	}
}

func (s *ChatScreen) View() string {
	var b strings.Builder
	title := "Ticket " + s.uid
	if s.state.TicketNumber > 0 {
		title = fmt.Sprintf("Ticket #%d", s.state.TicketNumber)
	}
	b.WriteString(s.theme.Header.Render(title))
	if s.state.Ready && !s.state.IsOpen {
		b.WriteString("  " + s.theme.Completed.Render("closed"))
	}
	b.WriteString("\n\n")

	if !s.state.Ready {
		b.WriteString(s.theme.Faint.Render("Loading...") + "\n")
	}
	for _, m := range s.state.Messages {
		bubble := s.theme.BubbleStyle(m.Sender)
		b.WriteString(s.theme.Faint.Render(string(m.Sender)) + "\n")
		b.WriteString(bubble.Render(content.Sanitize(m.Content)) + "\n")
	}

	b.WriteString("\n" + s.theme.SubHeader.Render("Attachments") + "\n")
	if len(s.state.Attachments) == 0 {
		b.WriteString(s.theme.Faint.Render("No attachments") + "\n")
	}
	for _, a := range s.state.Attachments {
		b.WriteString(fmt.Sprintf("%s (%d bytes)\n", a.File, a.Size))
	}

	b.WriteString("\n")
	if s.canCompose() {
		b.WriteString(s.compose.View() + "\n")
		if s.sending {
			b.WriteString(s.theme.Faint.Render("Sending...") + "\n")
		}
	} else if s.state.Ready {
		b.WriteString(s.theme.Faint.Render("This ticket is closed.") + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Error.Render(s.notice) + "\n")
	}
	b.WriteString(s.theme.Help.Render("enter: send · ctrl+d: save attachments · ctrl+e: receipt · esc: home"))
	return b.String()
}
