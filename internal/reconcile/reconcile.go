// Package reconcile turns raw ticket listings into the view models the
// list screens render. Its one guarantee: Load never raises a fetch
// problem to its caller — anything short of a missing session degrades
// to an empty list plus a display-only diagnostic.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"opora/internal/api"
	"opora/internal/models"
	"opora/internal/session"
)

// Diag is a side channel for the list screens' debug panel. It never
// feeds program logic.
type Diag struct {
	// NotAuthorized marks a 401/403 reply, shown as "not authorized"
	// instead of an empty list.
	NotAuthorized bool
	Count         int
	Status        int
	// RawBody is a short excerpt of the response body.
	RawBody string
}

const rawBodyLimit = 200

type Reconciler struct {
	api      *api.Client
	sessions *session.Store
}

func New(client *api.Client, sessions *session.Store) *Reconciler {
	return &Reconciler{api: client, sessions: sessions}
}

// Load fetches, filters, sorts and projects one ticket listing.
// The only error it returns is models.ErrNotAuthenticated, which the
// caller answers by routing to login.
func (r *Reconciler) Load(ctx context.Context, filter models.StatusFilter) ([]models.Ticket, Diag, error) {
	if !r.sessions.Get().Authenticated() {
		return nil, Diag{}, models.ErrNotAuthenticated
	}

	var (
		records []api.TicketRecord
		res     api.Result
		err     error
	)
	if filter == models.FilterNotComplete {
		records, res, err = r.api.AdminPending(ctx)
	} else {
		records, res, err = r.api.AdminAll(ctx)
	}
	if err != nil {
		// Network failure: empty list, diagnostic only.
		return []models.Ticket{}, Diag{RawBody: err.Error()}, nil
	}

	diag := Diag{
		NotAuthorized: res.Unauthorized(),
		Status:        res.Status,
		Count:         len(records),
		RawBody:       excerpt(res),
	}
	if !res.OK() {
		return []models.Ticket{}, diag, nil
	}

	if filter == models.FilterCompleted {
		kept := records[:0]
		for _, rec := range records {
			if !rec.IsOpen {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	// Stable, so equal-unread tickets keep arrival order and repeated
	// fetches don't visibly reshuffle the list.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UnreadCount > records[j].UnreadCount
	})

	tickets := make([]models.Ticket, len(records))
	for i, rec := range records {
		tickets[i] = Project(rec)
	}
	diag.Count = len(tickets)
	return tickets, diag, nil
}

// Project maps a wire record into the Ticket view model. The last
// message preview is the final element of the server-ordered message
// array, or empty when there are no messages.
func Project(rec api.TicketRecord) models.Ticket {
	lastMessage := ""
	if n := len(rec.Messages); n > 0 {
		lastMessage = rec.Messages[n-1].Content
	}
	number := rec.TicketNumber
	if number == 0 {
		number = rec.ID
	}
	return models.Ticket{
		UID:          rec.UID,
		TicketNumber: number,
		Title:        rec.Title,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		UnreadCount:  rec.UnreadCount,
		CreatedAt:    rec.CreatedAt,
		IsOpen:       rec.IsOpen,
		LastMessage:  lastMessage,
		ClosedBy:     rec.ClosedBy,
		ClosedAt:     rec.ClosedAt,
	}
}

func excerpt(res api.Result) string {
	var body string
	switch res.Kind {
	case api.KindJSON:
		body = string(res.JSON)
	case api.KindText:
		body = res.Text
	default:
		return ""
	}
	if len(body) > rawBodyLimit {
		return fmt.Sprintf("%s… (%d bytes)", body[:rawBodyLimit], len(body))
	}
	return body
}
