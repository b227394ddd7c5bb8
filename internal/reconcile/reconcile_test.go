package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"opora/internal/api"
	"opora/internal/models"
	"opora/internal/session"
)

func newTestReconciler(t *testing.T, handler http.Handler, sess models.Session) *Reconciler {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := session.Open(filepath.Join(t.TempDir(), "opora.db"), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if sess != (models.Session{}) {
		if err := store.Set(sess); err != nil {
			t.Fatal(err)
		}
	}

	client := api.New(context.Background(), api.Config{
		BaseURL: server.URL,
		Tokens:  store,
	})
	return New(client, store)
}

var adminSession = models.Session{Token: "tok", IsAdmin: true, UserID: "1"}

func TestLoadRequiresSession(t *testing.T) {
	r := newTestReconciler(t, http.NotFoundHandler(), models.Session{})
	_, _, err := r.Load(context.Background(), models.FilterNotComplete)
	if !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLoadEndpointPerFilter(t *testing.T) {
	var gotPath string
	r := newTestReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}), adminSession)

	cases := []struct {
		filter models.StatusFilter
		path   string
	}{
		{models.FilterNotComplete, "/admin/tickets/pending/"},
		{models.FilterAll, "/admin/tickets/"},
		{models.FilterCompleted, "/admin/tickets/"},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			if _, _, err := r.Load(context.Background(), tc.filter); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if gotPath != tc.path {
				t.Errorf("path: got %q, want %q", gotPath, tc.path)
			}
		})
	}
}

func TestLoadCompletedFilter(t *testing.T) {
	r := newTestReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`[
			{"uid":"a","is_open":true},
			{"uid":"b","is_open":false},
			{"uid":"c","is_open":false}
		]`))
	}), adminSession)

	tickets, diag, err := r.Load(context.Background(), models.FilterCompleted)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 closed tickets, got %d", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.IsOpen {
			t.Errorf("open ticket leaked into completed view: %+v", ticket)
		}
	}
	if diag.Count != 2 {
		t.Errorf("diag count: got %d", diag.Count)
	}
}

func TestLoadSortsByUnreadStable(t *testing.T) {
	r := newTestReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`[
			{"uid":"a","unread_count":1},
			{"uid":"b","unread_count":5},
			{"uid":"c","unread_count":1},
			{"uid":"d","unread_count":3}
		]`))
	}), adminSession)

	tickets, _, err := r.Load(context.Background(), models.FilterAll)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := make([]string, len(tickets))
	for i, ticket := range tickets {
		got[i] = ticket.UID
	}
	want := []string{"b", "d", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
}

func TestLoadDegradesToEmpty(t *testing.T) {
	t.Run("ServerError", func(t *testing.T) {
		r := newTestReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}), adminSession)

		tickets, diag, err := r.Load(context.Background(), models.FilterAll)
		if err != nil {
			t.Fatalf("a 500 must not be an error: %v", err)
		}
		if len(tickets) != 0 {
			t.Errorf("expected empty list, got %+v", tickets)
		}
		if diag.Status != http.StatusInternalServerError || diag.RawBody == "" {
			t.Errorf("diagnostic lost: %+v", diag)
		}
	})

	t.Run("NotAuthorized", func(t *testing.T) {
		r := newTestReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}), adminSession)

		tickets, diag, err := r.Load(context.Background(), models.FilterNotComplete)
		if err != nil {
			t.Fatalf("a 403 must not be an error: %v", err)
		}
		if len(tickets) != 0 {
			t.Errorf("expected empty list, got %+v", tickets)
		}
		if !diag.NotAuthorized {
			t.Error("403 must be flagged distinctly from an empty result")
		}
	})

	t.Run("NetworkFailure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		store, err := session.Open(filepath.Join(t.TempDir(), "opora.db"), nil)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = store.Close() })
		if err := store.Set(adminSession); err != nil {
			t.Fatal(err)
		}
		client := api.New(context.Background(), api.Config{BaseURL: server.URL, Tokens: store})
		server.Close()

		tickets, diag, err := New(client, store).Load(context.Background(), models.FilterAll)
		if err != nil {
			t.Fatalf("network failure must not be an error: %v", err)
		}
		if len(tickets) != 0 || diag.RawBody == "" {
			t.Errorf("expected empty list with diagnostic, got %+v / %+v", tickets, diag)
		}
	})
}

func TestProject(t *testing.T) {
	t.Run("LastMessagePreview", func(t *testing.T) {
		ticket := Project(api.TicketRecord{
			UID:          "a",
			TicketNumber: 3,
			Messages: []api.MessageRecord{
				{Content: "first"},
				{Content: "latest"},
			},
		})
		if ticket.LastMessage != "latest" {
			t.Errorf("last message: got %q", ticket.LastMessage)
		}
	})

	t.Run("NoMessages", func(t *testing.T) {
		if got := Project(api.TicketRecord{UID: "a"}).LastMessage; got != "" {
			t.Errorf("expected empty preview, got %q", got)
		}
	})

	t.Run("NumberFallsBackToID", func(t *testing.T) {
		if got := Project(api.TicketRecord{ID: 12}).TicketNumber; got != 12 {
			t.Errorf("ticket number: got %d", got)
		}
	})
}
