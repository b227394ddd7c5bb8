//go:build e2e

package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"opora/internal/actions"
	"opora/internal/api"
	"opora/internal/models"
	"opora/internal/reconcile"
	"opora/internal/session"
	"opora/internal/stubs"
)

// env is one fully wired client stack pointed at an in-process stub
// ticketing service.
type env struct {
	Server     *stubs.Server
	Store      *session.Store
	API        *api.Client
	Reconciler *reconcile.Reconciler
	Dispatcher *actions.Dispatcher
}

func startEnv(t *testing.T) *env {
	t.Helper()

	stub := stubs.NewServer()
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	store, err := session.Open(filepath.Join(t.TempDir(), "opora.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(context.Background(), api.Config{
		BaseURL: server.URL,
		Tokens:  store,
		Logger:  logger,
	})

	return &env{
		Server:     stub,
		Store:      store,
		API:        client,
		Reconciler: reconcile.New(client, store),
		Dispatcher: actions.New(client, nil, logger),
	}
}

// registerUser registers a fresh account and stores its session, the
// same sequence the register screen runs.
func (e *env) registerUser(t *testing.T, username string) models.Session {
	t.Helper()
	sess, fieldErrs, err := e.API.Register(context.Background(), api.RegisterRequest{
		Username:  username,
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     username + "@example.com",
		Password:  "secret",
	})
	require.NoError(t, err)
	require.Empty(t, fieldErrs)
	require.NoError(t, e.Store.Set(sess))
	return sess
}

// loginAdmin switches the stored session to the stub's seeded admin.
func (e *env) loginAdmin(t *testing.T) models.Session {
	t.Helper()
	sess := models.Session{Token: e.Server.AdminToken(), IsAdmin: true, UserID: "1"}
	require.NoError(t, e.Store.Set(sess))
	return sess
}

func (e *env) createTicket(t *testing.T, title string) api.CreatedTicket {
	t.Helper()
	created, fieldErrs, err := e.Dispatcher.CreateTicket(context.Background(), api.CreateTicketRequest{
		FirstName:   "Ivan",
		LastName:    "Petrov",
		Title:       title,
		Description: "description of " + title,
		Attachments: []api.AttachmentUpload{
			{Name: "shot.png", Data: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, fieldErrs)
	require.NotEmpty(t, created.UID)
	return created
}
