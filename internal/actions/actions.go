// Package actions sends single mutating requests to the ticketing
// service. Every action is one idempotency-unaware POST: no retries,
// no queueing, no deduplication. After a success the injected refresh
// hook re-runs the relevant fetch so the new server state becomes
// visible; the only optimistic local update is the open/closed flip
// after a close or reopen, and the next poll supersedes it either way.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"opora/internal/api"
	"opora/internal/models"
)

type Kind string

const (
	KindSendMessage  Kind = "send_message"
	KindClose        Kind = "close"
	KindReopen       Kind = "reopen"
	KindAssign       Kind = "assign"
	KindCreateTicket Kind = "create_ticket"
)

type Dispatcher struct {
	api *api.Client
	log *slog.Logger
	// refresh is invoked after every successful action so the caller
	// can re-fetch and observe the new server state.
	refresh func(kind Kind)
}

func New(client *api.Client, refresh func(kind Kind), logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if refresh == nil {
		refresh = func(Kind) {}
	}
	return &Dispatcher{api: client, refresh: refresh, log: logger}
}

// SendMessage appends a message to the ticket thread. Callers gate on
// models.CanCompose first; a send for a closed ticket by a non-admin
// must never reach this point.
func (d *Dispatcher) SendMessage(ctx context.Context, ticketUID string, sender models.Sender, content string) error {
	if content == "" {
		return nil
	}
	res, err := d.api.CreateMessage(ctx, ticketUID, sender, content)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("send message: status %d", res.Status)
	}
	d.refresh(KindSendMessage)
	return nil
}

// Close requests the close transition. The confirmed flag is the
// explicit user confirmation step: without it no request is sent.
// On success it returns the locally flipped open state (false).
func (d *Dispatcher) Close(ctx context.Context, ticketUID string, confirmed bool) (isOpen bool, err error) {
	if !confirmed {
		return true, models.ErrConfirmationRequired
	}
	if err := d.adminAction(ctx, ticketUID, "close", ""); err != nil {
		return true, err
	}
	d.refresh(KindClose)
	return false, nil
}

// Reopen requests the reopen transition; no confirmation is required.
func (d *Dispatcher) Reopen(ctx context.Context, ticketUID string) (isOpen bool, err error) {
	if err := d.adminAction(ctx, ticketUID, "reopen", ""); err != nil {
		return false, err
	}
	d.refresh(KindReopen)
	return true, nil
}

// Assign assigns the ticket to the given admin user.
func (d *Dispatcher) Assign(ctx context.Context, ticketUID, userID string) error {
	if err := d.adminAction(ctx, ticketUID, "assign", userID); err != nil {
		return err
	}
	d.refresh(KindAssign)
	return nil
}

// CreateTicket files a new ticket with its attachments. Field errors
// come back for inline display, exactly as the server shaped them.
func (d *Dispatcher) CreateTicket(ctx context.Context, req api.CreateTicketRequest) (api.CreatedTicket, api.FieldErrors, error) {
	created, fieldErrs, err := d.api.CreateTicket(ctx, req)
	if err != nil || len(fieldErrs) > 0 {
		return created, fieldErrs, err
	}
	d.refresh(KindCreateTicket)
	return created, nil, nil
}

func (d *Dispatcher) adminAction(ctx context.Context, ticketUID, action, assignUserID string) error {
	res, err := d.api.AdminAction(ctx, ticketUID, action, assignUserID)
	if err != nil {
		return err
	}
	if res.Unauthorized() {
		return fmt.Errorf("%s ticket %s: %w", action, ticketUID, models.ErrNotAuthorized)
	}
	if !res.OK() {
		return fmt.Errorf("%s ticket %s: status %d", action, ticketUID, res.Status)
	}
	d.log.Info("ticket action performed", "action", action, "uid", ticketUID)
	return nil
}
