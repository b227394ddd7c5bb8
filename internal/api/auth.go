package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"opora/internal/models"
)

// FieldErrors carries server-side validation errors keyed by field
// name, passed through verbatim for inline display. The server sends
// either a string or an array of strings per field; both are accepted.
// Non-JSON error bodies land under the "detail" key.
type FieldErrors map[string][]string

func (fe FieldErrors) Field(name string) string {
	if len(fe[name]) == 0 {
		return ""
	}
	msg := fe[name][0]
	for _, m := range fe[name][1:] {
		msg += ", " + m
	}
	return msg
}

func parseFieldErrors(res Result) FieldErrors {
	switch res.Kind {
	case KindJSON:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(res.JSON, &raw); err != nil {
			return FieldErrors{"detail": {string(res.JSON)}}
		}
		fe := make(FieldErrors, len(raw))
		for field, val := range raw {
			var many []string
			if err := json.Unmarshal(val, &many); err == nil {
				fe[field] = many
				continue
			}
			var one string
			if err := json.Unmarshal(val, &one); err == nil {
				fe[field] = []string{one}
				continue
			}
			fe[field] = []string{string(val)}
		}
		return fe
	case KindText:
		return FieldErrors{"detail": {res.Text}}
	default:
		return FieldErrors{"detail": {fmt.Sprintf("request failed with status %d", res.Status)}}
	}
}

type authPayload struct {
	Token   string      `json:"token"`
	IsAdmin bool        `json:"is_admin"`
	UserID  json.Number `json:"user_id"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Login exchanges credentials for a session. On validation failure the
// server's field errors are returned; the error is reserved for
// transport failure.
func (c *Client) Login(ctx context.Context, username, password string) (models.Session, FieldErrors, error) {
	res, err := c.doJSON(ctx, http.MethodPost, c.url("/auth/login/"), map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return models.Session{}, nil, err
	}
	return c.sessionFromAuth(res)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (models.Session, FieldErrors, error) {
	res, err := c.doJSON(ctx, http.MethodPost, c.url("/auth/register/"), req)
	if err != nil {
		return models.Session{}, nil, err
	}
	return c.sessionFromAuth(res)
}

func (c *Client) sessionFromAuth(res Result) (models.Session, FieldErrors, error) {
	if !res.OK() {
		return models.Session{}, parseFieldErrors(res), nil
	}
	var payload authPayload
	if err := res.Decode(&payload); err != nil {
		return models.Session{}, nil, fmt.Errorf("decode auth response: %w", err)
	}
	return models.Session{
		Token:   payload.Token,
		IsAdmin: payload.IsAdmin,
		UserID:  payload.UserID.String(),
	}, nil, nil
}

// Me returns the identity behind the current token. Responses are
// cached briefly per token.
func (c *Client) Me(ctx context.Context) (models.Identity, error) {
	token := c.tokens.Token()
	if token == "" {
		return models.Identity{}, models.ErrNotAuthenticated
	}
	if identity, err := c.me.Get(token); err == nil {
		return identity, nil
	}

	res, err := c.do(ctx, http.MethodGet, c.url("/auth/me/"), nil, "")
	if err != nil {
		return models.Identity{}, err
	}
	if res.Unauthorized() {
		return models.Identity{}, models.ErrNotAuthorized
	}
	if !res.OK() {
		return models.Identity{}, fmt.Errorf("auth/me returned status %d", res.Status)
	}

	var identity models.Identity
	if err := res.Decode(&identity); err != nil {
		return models.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	c.me.Set(token, identity)
	return identity, nil
}
