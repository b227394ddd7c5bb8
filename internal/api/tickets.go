package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"opora/internal/models"
)

// TicketRecord is the server's wire shape for a ticket. The view
// projection into models.Ticket happens in the reconciler; this type
// only mirrors the payload.
type TicketRecord struct {
	UID          string              `json:"uid"`
	ID           int                 `json:"id"`
	TicketNumber int                 `json:"ticket_number"`
	Title        string              `json:"title"`
	FirstName    string              `json:"first_name"`
	LastName     string              `json:"last_name"`
	UnreadCount  int                 `json:"unread_count"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	IsOpen       bool                `json:"is_open"`
	ClosedBy     string              `json:"closed_by"`
	ClosedAt     string              `json:"closed_at"`
	Messages     []MessageRecord     `json:"messages"`
	Attachments  []models.Attachment `json:"attachments"`
}

type MessageRecord struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Detail is the full per-ticket snapshot the chat screen polls for.
type Detail struct {
	UID          string              `json:"uid"`
	TicketNumber int                 `json:"ticket_number"`
	IsOpen       bool                `json:"is_open"`
	Messages     []models.Message    `json:"messages"`
	Attachments  []models.Attachment `json:"attachments"`
}

// Page is one page of the possibly-paginated my-tickets listing. The
// server answers either `{results, next, count}` or a bare array;
// both decode into a Page.
type Page struct {
	Results []TicketRecord
	Next    string
	Count   int
}

func (p *Page) UnmarshalJSON(data []byte) error {
	var bare []TicketRecord
	if err := json.Unmarshal(data, &bare); err == nil {
		*p = Page{Results: bare, Count: len(bare)}
		return nil
	}
	var paged struct {
		Results []TicketRecord `json:"results"`
		Next    string         `json:"next"`
		Count   *int           `json:"count"`
	}
	if err := json.Unmarshal(data, &paged); err != nil {
		return err
	}
	count := len(paged.Results)
	if paged.Count != nil {
		count = *paged.Count
	}
	*p = Page{Results: paged.Results, Next: paged.Next, Count: count}
	return nil
}

// MyTickets fetches one page of the caller's own tickets. isOpen, when
// non-nil, is passed as the is_open query filter.
func (c *Client) MyTickets(ctx context.Context, isOpen *bool) (Page, error) {
	endpoint := c.url("/tickets/my/")
	if isOpen != nil {
		endpoint += "?is_open=" + fmt.Sprintf("%t", *isOpen)
	}
	return c.fetchPage(ctx, endpoint)
}

// MyTicketsAll follows pagination next links and aggregates every
// page, so the reports screen shows the full history.
func (c *Client) MyTicketsAll(ctx context.Context) ([]TicketRecord, error) {
	var all []TicketRecord
	next := c.url("/tickets/my/")
	for next != "" {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			// A mid-aggregation failure keeps what was already
			// collected rather than discarding complete pages.
			if len(all) > 0 {
				return all, nil
			}
			return nil, err
		}
		all = append(all, page.Results...)
		next = page.Next
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) (Page, error) {
	res, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return Page{}, err
	}
	if res.Unauthorized() {
		return Page{}, models.ErrNotAuthorized
	}
	if !res.OK() {
		return Page{}, fmt.Errorf("tickets listing returned status %d", res.Status)
	}
	var page Page
	if err := res.Decode(&page); err != nil {
		return Page{}, fmt.Errorf("decode tickets page: %w", err)
	}
	return page, nil
}

// TicketDetail fetches the full message/attachment/status snapshot for
// one ticket. Admins read through the admin endpoint.
func (c *Client) TicketDetail(ctx context.Context, uid string, admin bool) (Detail, error) {
	path := "/tickets/" + url.PathEscape(uid) + "/"
	if admin {
		path = "/admin/tickets/" + url.PathEscape(uid) + "/"
	}
	res, err := c.do(ctx, http.MethodGet, c.url(path), nil, "")
	if err != nil {
		return Detail{}, err
	}
	if res.Unauthorized() {
		return Detail{}, fmt.Errorf("ticket %s: %w", uid, models.ErrNotAuthorized)
	}
	if !res.OK() {
		return Detail{}, fmt.Errorf("ticket %s returned status %d", uid, res.Status)
	}

	var payload struct {
		UID          string              `json:"uid"`
		TicketNumber int                 `json:"ticket_number"`
		IsOpen       bool                `json:"is_open"`
		Messages     []MessageRecord     `json:"messages"`
		Attachments  []models.Attachment `json:"attachments"`
	}
	if err := res.Decode(&payload); err != nil {
		return Detail{}, fmt.Errorf("decode ticket %s: %w", uid, err)
	}

	detail := Detail{
		UID:          payload.UID,
		TicketNumber: payload.TicketNumber,
		IsOpen:       payload.IsOpen,
		Messages:     make([]models.Message, len(payload.Messages)),
		Attachments:  payload.Attachments,
	}
	for i, m := range payload.Messages {
		detail.Messages[i] = models.Message{
			ID:        m.ID,
			Sender:    models.Sender(m.Sender),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return detail, nil
}

// AdminPending fetches tickets awaiting admin attention. The raw
// Result is returned alongside the parsed records so the reconciler
// can apply its degrade-to-empty policy and keep a diagnostic.
func (c *Client) AdminPending(ctx context.Context) ([]TicketRecord, Result, error) {
	return c.adminList(ctx, c.url("/admin/tickets/pending/"))
}

// AdminAll fetches the complete admin ticket collection.
func (c *Client) AdminAll(ctx context.Context) ([]TicketRecord, Result, error) {
	return c.adminList(ctx, c.url("/admin/tickets/"))
}

func (c *Client) adminList(ctx context.Context, endpoint string) ([]TicketRecord, Result, error) {
	res, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, Result{}, err
	}
	if !res.OK() || res.Kind != KindJSON {
		return nil, res, nil
	}
	var records []TicketRecord
	if err := json.Unmarshal(res.JSON, &records); err != nil {
		// Unparseable body degrades to an empty list downstream.
		return nil, res, nil
	}
	return records, res, nil
}

// CreateMessage appends a message to a ticket's thread.
func (c *Client) CreateMessage(ctx context.Context, ticketUID string, sender models.Sender, content string) (Result, error) {
	return c.doJSON(ctx, http.MethodPost, c.url("/messages/create/"), map[string]string{
		"ticket_uid": ticketUID,
		"sender":     string(sender),
		"content":    content,
	})
}

// AdminAction requests a server-side ticket transition. assignUserID
// is only sent for the assign action.
func (c *Client) AdminAction(ctx context.Context, ticketUID, action, assignUserID string) (Result, error) {
	body := map[string]string{"action": action}
	if assignUserID != "" {
		body["assign_user_id"] = assignUserID
	}
	return c.doJSON(ctx, http.MethodPost, c.url("/admin/tickets/"+url.PathEscape(ticketUID)+"/action/"), body)
}
