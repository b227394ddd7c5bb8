package ui

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/api"
	"opora/internal/content"
	"opora/internal/models"
)

// ReceiptScreen shows the server-generated receipt for a ticket. A 401
// means the server wants the requester to prove ownership with the
// first/last name used on the ticket, so the screen switches to a name
// prompt and retries with the names as query parameters.
type ReceiptScreen struct {
	deps  Deps
	theme *Theme

	ticket  string
	receipt *models.Receipt

	needNames bool
	firstName textinput.Model
	lastName  textinput.Model
	focus     int

	loading bool
	notice  string
}

type receiptLoadedMsg struct {
	receipt models.Receipt
	err     error
}

type pdfSavedMsg struct {
	path string
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

func NewReceiptScreen(deps Deps, theme *Theme, ticket string) *ReceiptScreen {
	firstName := textinput.New()
	firstName.Placeholder = "first name"
	firstName.Focus()
	lastName := textinput.New()
	lastName.Placeholder = "last name"

	return &ReceiptScreen{
		deps:      deps,
		theme:     theme,
		ticket:    ticket,
		firstName: firstName,
		lastName:  lastName,
		loading:   true,
	}
}

func (s *ReceiptScreen) Init() tea.Cmd {
	return tea.Batch(s.fetch(), textinput.Blink)
}

func (s *ReceiptScreen) fetch() tea.Cmd {
	deps := s.deps
	ticket := s.ticket
	first := strings.TrimSpace(s.firstName.Value())
	last := strings.TrimSpace(s.lastName.Value())
	return func() tea.Msg {
		receipt, err := deps.API.Receipt(cmdContext(), ticket, first, last)
		return receiptLoadedMsg{receipt: receipt, err: err}
	}
}

func (s *ReceiptScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, navigate(NewHomeScreen(s.deps, s.theme))
		case "tab", "shift+tab", "up", "down":
			if s.needNames {
				s.cycleFocus()
			}
			return s, nil
		case "enter":
			s.loading = true
			return s, s.fetch()
		case "ctrl+p":
			return s, s.downloadPDF()
		case "ctrl+y":
			return s, s.copyShareText()
		case "ctrl+e":
			return s, s.exportHTML()
		}
	case receiptLoadedMsg:
		s.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrNeedNames) {
				s.needNames = true
				s.receipt = nil
				return s, nil
			}
			s.notice = "Failed to load receipt: " + msg.err.Error()
			return s, nil
		}
		receipt := msg.receipt
		s.receipt = &receipt
		s.needNames = false
		s.notice = ""
		return s, nil
	case pdfSavedMsg:
		if msg.err != nil {
			s.notice = "Download failed: " + msg.err.Error()
		} else {
			s.notice = "PDF saved to " + msg.path
		}
		return s, nil
	case exportedMsg:
		if msg.err != nil {
			s.notice = "Export failed: " + msg.err.Error()
		} else {
			s.notice = "Exported to " + msg.path
		}
		return s, nil
	}

	if s.needNames {
		var cmd tea.Cmd
		if s.focus == 0 {
			s.firstName, cmd = s.firstName.Update(msg)
		} else {
			s.lastName, cmd = s.lastName.Update(msg)
		}
		return s, cmd
	}
	return s, nil
}

func (s *ReceiptScreen) cycleFocus() {
	s.focus = (s.focus + 1) % 2
	if s.focus == 0 {
		s.firstName.Focus()
		s.lastName.Blur()
	} else {
		s.lastName.Focus()
		s.firstName.Blur()
	}
}

func (s *ReceiptScreen) shareText() string {
	r := s.receipt
	return fmt.Sprintf("Ticket #%d\nName: %s %s\nIssue: %s\nDescription: %s\nCreated: %s",
		r.TicketNumber, r.FirstName, r.LastName, r.Title, r.Description, r.CreatedAt)
}

// copyShareText puts the receipt summary on the system clipboard via
// the OSC 52 escape sequence, writing to /dev/tty so the sequence
// bypasses the managed TUI output.
func (s *ReceiptScreen) copyShareText() tea.Cmd {
	if s.receipt == nil {
		return nil
	}
	text := s.shareText()
	s.notice = "Copied receipt to clipboard"
	return func() tea.Msg {
		tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			return nil
		}
		defer func() { _ = tty.Close() }()
		encoded := base64.StdEncoding.EncodeToString([]byte(text))
		_, _ = fmt.Fprintf(tty, "\x1b]52;c;%s\x07", encoded)
		return nil
	}
}

func (s *ReceiptScreen) downloadPDF() tea.Cmd {
	if s.receipt == nil {
		return nil
	}
	deps := s.deps
	number := fmt.Sprintf("%d", s.receipt.TicketNumber)
	first := firstNonEmpty(strings.TrimSpace(s.firstName.Value()), s.receipt.FirstName)
	last := firstNonEmpty(strings.TrimSpace(s.lastName.Value()), s.receipt.LastName)
	path := fmt.Sprintf("receipt-%s.pdf", number)
	return func() tea.Msg {
		data, err := deps.API.ReceiptPDF(cmdContext(), number, first, last)
		if err != nil {
			return pdfSavedMsg{err: err}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return pdfSavedMsg{err: err}
		}
		return pdfSavedMsg{path: path}
	}
}

// exportHTML renders the receipt to a sanitized HTML file for sharing
// outside the terminal.
func (s *ReceiptScreen) exportHTML() tea.Cmd {
	if s.receipt == nil {
		return nil
	}
	r := *s.receipt
	path := fmt.Sprintf("receipt-%d.html", r.TicketNumber)
	return func() tea.Msg {
		markdown := fmt.Sprintf("# Ticket #%d\n\n**Name:** %s %s\n\n**Issue:** %s\n\n%s\n\n*Created: %s*\n",
			r.TicketNumber, r.FirstName, r.LastName, r.Title, r.Description, r.CreatedAt)
		html, err := content.RenderMarkdown(markdown)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := os.WriteFile(path, []byte(html), 0644); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *ReceiptScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("Receipt") + "\n\n")

	if s.loading {
		b.WriteString(s.theme.Faint.Render("Loading...") + "\n")
		return b.String()
	}

	if s.receipt == nil {
		if s.needNames {
			b.WriteString(s.theme.SubHeader.Render("Enter your name to view the receipt") + "\n")
			b.WriteString("First name\n" + s.firstName.View() + "\n")
			b.WriteString("Last name\n" + s.lastName.View() + "\n")
			b.WriteString(s.theme.Help.Render("enter: submit · esc: home"))
		} else {
			b.WriteString(s.theme.Faint.Render("No receipt") + "\n")
			if s.notice != "" {
				b.WriteString(s.theme.Error.Render(s.notice) + "\n")
			}
			b.WriteString(s.theme.Help.Render("enter: retry · esc: home"))
		}
		return b.String()
	}

	r := s.receipt
	b.WriteString(s.theme.SubHeader.Render(fmt.Sprintf("Ticket #%d", r.TicketNumber)) + "\n")
	b.WriteString("Name: " + r.FirstName + " " + r.LastName + "\n")
	b.WriteString("Issue: " + r.Title + "\n")
	b.WriteString(r.Description + "\n")
	b.WriteString(s.theme.Faint.Render("Created: "+r.CreatedAt) + "\n")
	if s.notice != "" {
		b.WriteString(s.theme.Notice.Render(s.notice) + "\n")
	}
	b.WriteString("\n" + s.theme.Help.Render("ctrl+y: copy · ctrl+p: save pdf · ctrl+e: export html · esc: home"))
	return b.String()
}
