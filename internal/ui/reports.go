package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/models"
	"opora/internal/reconcile"
)

// ReportsScreen lists every report the user ever filed, aggregating
// all pagination pages in one load.
type ReportsScreen struct {
	deps  Deps
	theme *Theme

	tickets  []models.Ticket
	selected int
	loading  bool
	notice   string
}

type reportsLoadedMsg struct {
	tickets []models.Ticket
	err     error
}

func NewReportsScreen(deps Deps, theme *Theme) *ReportsScreen {
	return &ReportsScreen{deps: deps, theme: theme, loading: true}
}

func (s *ReportsScreen) Init() tea.Cmd {
	return s.load()
}

func (s *ReportsScreen) load() tea.Cmd {
	deps := s.deps
	return func() tea.Msg {
		records, err := deps.API.MyTicketsAll(cmdContext())
		if err != nil {
			return reportsLoadedMsg{err: err}
		}
		tickets := make([]models.Ticket, len(records))
		for i, rec := range records {
			tickets[i] = reconcile.Project(rec)
		}
		return reportsLoadedMsg{tickets: tickets}
	}
}

func (s *ReportsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, navigate(NewHomeScreen(s.deps, s.theme))
		case "ctrl+r":
			s.loading = true
			return s, s.load()
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
		case "ctrl+e":
			if s.selected < len(s.tickets) {
				t := s.tickets[s.selected]
				ticket := t.UID
				if t.TicketNumber > 0 {
					ticket = fmt.Sprintf("%d", t.TicketNumber)
				}
				return s, navigate(NewReceiptScreen(s.deps, s.theme, ticket))
			}
		}
		return s, nil
	case reportsLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.notice = "Failed to load reports: " + msg.err.Error()
			return s, nil
		}
		s.tickets = msg.tickets
		if s.selected >= len(s.tickets) {
			s.selected = 0
		}
		return s, nil
	case refreshMsg:
		return s, s.load()
	}
	return s, nil
}

func (s *ReportsScreen) View() string {
	var b strings.Builder
	b.WriteString(s.theme.Header.Render("My Reports") + "\n\n")

	if s.loading {
		b.WriteString(s.theme.Faint.Render("Loading...") + "\n")
	} else if len(s.tickets) == 0 {
		b.WriteString(s.theme.Faint.Render("No reports yet") + "\n")
	}
	for i, t := range s.tickets {
		line := t.Title
		if t.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d new)", t.UnreadCount)
		}
		if !t.IsOpen {
			line += "  " + s.theme.Completed.Render("Completed")
		}
		line += "\n    " + s.theme.Faint.Render(t.FirstName+" "+t.LastName)
		if i == s.selected {
			line = s.theme.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if s.notice != "" {
		b.WriteString(s.theme.Error.Render(s.notice) + "\n")
	}
	b.WriteString("\n" + s.theme.Help.Render("enter: open chat · ctrl+e: receipt · ctrl+r: refresh · esc: home"))
	return b.String()
}
