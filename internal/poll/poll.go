// Package poll keeps one ticket's message/attachment/status snapshot
// fresh. Each fetch carries a generation number and a snapshot is
// applied only when its generation is the newest issued, so a slow
// response from an earlier tick (or from a previous ticket after a
// switch) can never overwrite fresher state. A failed fetch leaves the
// last applied snapshot exactly as it was.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"opora/internal/api"
	"opora/internal/models"
)

// Fetcher fetches the detail snapshot for a ticket. *api.Client
// satisfies it via TicketDetail; tests inject failures.
type Fetcher func(ctx context.Context, uid string, admin bool) (api.Detail, error)

type Outcome int

const (
	// OutcomeApplied means a 2xx snapshot replaced local state wholesale.
	OutcomeApplied Outcome = iota
	// OutcomeSkipped means the fetch failed and state was left untouched.
	OutcomeSkipped
	// OutcomeStale means the response lost the generation race and was
	// discarded, whatever its status.
	OutcomeStale
)

// State is the poller's current view of the ticket. Ready is false
// until the first successful apply.
type State struct {
	TicketUID    string
	TicketNumber int
	IsOpen       bool
	Messages     []models.Message
	Attachments  []models.Attachment
	Ready        bool
}

type Poller struct {
	fetch Fetcher
	admin bool
	log   *slog.Logger

	mu    sync.Mutex
	uid   string
	gen   uint64
	state State
}

func New(fetch Fetcher, admin bool, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{fetch: fetch, admin: admin, log: logger}
}

// Reset points the poller at a ticket and drops all previous state.
// Bumping the generation means any response still in flight for the
// old ticket is discarded instead of bleeding into the new screen.
func (p *Poller) Reset(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uid = uid
	p.gen++
	p.state = State{TicketUID: uid}
}

// State returns a copy of the current snapshot.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FetchOnce performs one generation-tagged fetch-and-apply cycle.
func (p *Poller) FetchOnce(ctx context.Context) Outcome {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	uid := p.uid
	p.mu.Unlock()

	if uid == "" {
		return OutcomeSkipped
	}

	detail, err := p.fetch(ctx, uid, p.admin)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || uid != p.uid {
		return OutcomeStale
	}
	if err != nil {
		// An auth failure is logged but polling continues; there is
		// no re-authentication path here.
		if errors.Is(err, models.ErrNotAuthorized) {
			p.log.Warn("ticket poll unauthorized", "uid", uid)
		} else {
			p.log.Debug("ticket poll skipped", "uid", uid, "error", err)
		}
		return OutcomeSkipped
	}

	p.state = State{
		TicketUID:    uid,
		TicketNumber: detail.TicketNumber,
		IsOpen:       detail.IsOpen,
		Messages:     detail.Messages,
		Attachments:  detail.Attachments,
		Ready:        true,
	}
	return OutcomeApplied
}

// Run polls on a fixed interval until the context is cancelled,
// invoking apply after every applied snapshot. The first fetch happens
// immediately. The TUI drives FetchOnce through its own event loop
// instead; Run serves headless callers.
func (p *Poller) Run(ctx context.Context, interval time.Duration, apply func(State)) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if p.FetchOnce(ctx) == OutcomeApplied && apply != nil {
			apply(p.State())
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
