package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"opora/internal/models"
)

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/login/" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			var creds map[string]string
			if err := json.Unmarshal(body, &creds); err != nil {
				t.Fatalf("request body is not JSON: %v", err)
			}
			if creds["username"] != "ivan" || creds["password"] != "pw" {
				t.Errorf("unexpected credentials %v", creds)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok-1","is_admin":true,"user_id":42}`))
		}), "")

		sess, fieldErrs, err := client.Login(context.Background(), "ivan", "pw")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if fieldErrs != nil {
			t.Fatalf("unexpected field errors: %v", fieldErrs)
		}
		if sess.Token != "tok-1" || !sess.IsAdmin || sess.UserID != "42" {
			t.Errorf("unexpected session %+v", sess)
		}
	})

	t.Run("FieldErrors", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"username":["already taken"],"password":"too short"}`))
		}), "")

		_, fieldErrs, err := client.Login(context.Background(), "ivan", "pw")
		if err != nil {
			t.Fatalf("validation failure must not be an error: %v", err)
		}
		if got := fieldErrs.Field("username"); got != "already taken" {
			t.Errorf("username error: got %q", got)
		}
		if got := fieldErrs.Field("password"); got != "too short" {
			t.Errorf("password error: got %q", got)
		}
	})

	t.Run("HTMLErrorPage", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>Bad Gateway</html>"))
		}), "")

		_, fieldErrs, err := client.Login(context.Background(), "ivan", "pw")
		if err != nil {
			t.Fatalf("non-JSON error page must not be an error: %v", err)
		}
		if got := fieldErrs.Field("detail"); got != "<html>Bad Gateway</html>" {
			t.Errorf("detail: got %q", got)
		}
	})

	t.Run("StringUserID", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token":"tok","is_admin":false,"user_id":"7"}`))
		}), "")

		sess, _, err := client.Login(context.Background(), "ivan", "pw")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if sess.UserID != "7" {
			t.Errorf("user id: got %q", sess.UserID)
		}
	})
}

func TestMe(t *testing.T) {
	t.Run("CachesPerToken", func(t *testing.T) {
		calls := 0
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(`{"id":1,"username":"root","is_staff":true}`))
		}), "tok")

		for i := 0; i < 3; i++ {
			identity, err := client.Me(context.Background())
			if err != nil {
				t.Fatalf("Me failed: %v", err)
			}
			if !identity.IsAdmin() {
				t.Error("expected staff identity to be admin")
			}
		}
		if calls != 1 {
			t.Errorf("expected a single upstream call, got %d", calls)
		}
	})

	t.Run("NoToken", func(t *testing.T) {
		client, _ := newTestClient(t, http.NotFoundHandler(), "")
		_, err := client.Me(context.Background())
		if !errors.Is(err, models.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("RevokedToken", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid token"}`))
		}), "stale")

		_, err := client.Me(context.Background())
		if !errors.Is(err, models.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
	})
}
