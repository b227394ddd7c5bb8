package ui

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/actions"
	"opora/internal/api"
	"opora/internal/config"
	"opora/internal/filecache"
	"opora/internal/models"
	"opora/internal/poll"
	"opora/internal/reconcile"
	"opora/internal/session"
)

func newTestDeps(t *testing.T, sess models.Session) Deps {
	t.Helper()
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

	files, err := filecache.New(filepath.Join(t.TempDir(), "attachments"))
	if err != nil {
		t.Fatalf("failed to create file cache: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(context.Background(), api.Config{
		BaseURL: "http://127.0.0.1:1",
		Tokens:  store,
		Logger:  logger,
	})
	return Deps{
		Cfg: &config.Config{
			ServerURL:     "http://127.0.0.1:1",
			PollInterval:  time.Second,
			CountInterval: time.Second,
		},
		Store:      store,
		API:        client,
		Reconciler: reconcile.New(client, store),
		Dispatcher: actions.New(client, nil, logger),
		Files:      files,
		Log:        logger,
	}
}

func TestChatComposeGating(t *testing.T) {
	t.Run("GatedBeforeFirstSnapshot", func(t *testing.T) {
		deps := newTestDeps(t, models.Session{Token: "tok"})
		theme := NewTheme(models.BubblePrefs{})
		screen := NewChatScreen(deps, &theme, "u-1")
		screen.compose.SetValue("hello")

		if screen.canCompose() {
			t.Error("composition must wait for the first snapshot")
		}
		if cmd := screen.send(); cmd != nil {
			t.Error("send before the first snapshot must be a no-op")
		}
	})

	t.Run("UserOnClosedTicket", func(t *testing.T) {
		deps := newTestDeps(t, models.Session{Token: "tok"})
		theme := NewTheme(models.BubblePrefs{})
		screen := NewChatScreen(deps, &theme, "u-1")
		screen.state = poll.State{TicketUID: "u-1", IsOpen: false, Ready: true}
		screen.compose.SetValue("hello")

		if screen.canCompose() {
			t.Error("a non-admin must not compose on a closed ticket")
		}
		if cmd := screen.send(); cmd != nil {
			t.Error("gated send must not produce a command")
		}
	})

	t.Run("AdminOnClosedTicket", func(t *testing.T) {
		deps := newTestDeps(t, models.Session{Token: "tok", IsAdmin: true})
		theme := NewTheme(models.BubblePrefs{})
		screen := NewChatScreen(deps, &theme, "u-1")
		screen.state = poll.State{TicketUID: "u-1", IsOpen: false, Ready: true}
		screen.compose.SetValue("hello")

		if !screen.canCompose() {
			t.Error("an admin composes on closed tickets too")
		}
		if cmd := screen.send(); cmd == nil {
			t.Error("admin send must produce a command")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		deps := newTestDeps(t, models.Session{Token: "tok"})
		theme := NewTheme(models.BubblePrefs{})
		screen := NewChatScreen(deps, &theme, "u-1")
		screen.state = poll.State{TicketUID: "u-1", IsOpen: true, Ready: true}
		screen.compose.SetValue("   ")

		if cmd := screen.send(); cmd != nil {
			t.Error("whitespace-only send must be a no-op")
		}
	})
}

func TestChatSnapshotHandling(t *testing.T) {
	deps := newTestDeps(t, models.Session{Token: "tok"})
	theme := NewTheme(models.BubblePrefs{})
	screen := NewChatScreen(deps, &theme, "u-1")
	screen.state = poll.State{
		TicketUID: "u-1",
		IsOpen:    true,
		Messages:  []models.Message{{ID: 1, Content: "kept"}},
		Ready:     true,
	}

	next, cmd := screen.Update(snapshotMsg{outcome: poll.OutcomeSkipped})
	chat := next.(*ChatScreen)
	if len(chat.state.Messages) != 1 || chat.state.Messages[0].Content != "kept" {
		t.Errorf("skipped snapshot clobbered state: %+v", chat.state)
	}
	if cmd == nil {
		t.Error("a skipped snapshot must still schedule the next tick")
	}
}

func TestChatSaveAttachmentsWithoutAny(t *testing.T) {
	deps := newTestDeps(t, models.Session{Token: "tok"})
	theme := NewTheme(models.BubblePrefs{})
	screen := NewChatScreen(deps, &theme, "u-1")
	screen.state = poll.State{TicketUID: "u-1", IsOpen: true, Ready: true}

	if cmd := screen.saveAttachments(); cmd != nil {
		t.Error("save with no attachments must be a no-op")
	}
}

func TestAppInitialRoute(t *testing.T) {
	t.Run("WithSession", func(t *testing.T) {
		app := New(newTestDeps(t, models.Session{Token: "tok"}))
		if _, ok := app.screen.(*HomeScreen); !ok {
			t.Errorf("expected the home screen, got %T", app.screen)
		}
	})

	t.Run("WithoutSession", func(t *testing.T) {
		app := New(newTestDeps(t, models.Session{}))
		if _, ok := app.screen.(*LoginScreen); !ok {
			t.Errorf("expected the login screen, got %T", app.screen)
		}
	})
}

func TestAppNavigation(t *testing.T) {
	deps := newTestDeps(t, models.Session{Token: "tok"})
	app := New(deps)

	theme := NewTheme(models.BubblePrefs{})
	target := NewReportsScreen(deps, &theme)
	model, _ := app.Update(navigateMsg{screen: target})
	if got := model.(*App).screen; got != Screen(target) {
		t.Errorf("navigate did not swap the screen: %T", got)
	}
}

func TestAppQuitKey(t *testing.T) {
	app := New(newTestDeps(t, models.Session{Token: "tok"}))
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c must produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("ctrl+c must quit, got %T", cmd())
	}
}
