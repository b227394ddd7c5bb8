// Package stubs is an in-memory stand-in for the remote ticketing
// service, used by the end-to-end tests and by local development
// against no backend. It implements the same REST surface the client
// talks to, with token auth and a seeded admin account.
package stubs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type User struct {
	ID        int
	Username  string
	Password  string
	FirstName string
	LastName  string
	IsStaff   bool
	Token     string
}

type Message struct {
	ID      int64  `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type Ticket struct {
	UID          string    `json:"uid"`
	TicketNumber int       `json:"ticket_number"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsOpen       bool      `json:"is_open"`
	UnreadCount  int       `json:"unread_count"`
	Messages     []Message `json:"messages"`

	OwnerID int `json:"-"`
}

// Server holds all state behind a mutex; the client under test hits it
// from several goroutines (polls, actions, count ticks).
type Server struct {
	mu         sync.Mutex
	users      []User
	tickets    []*Ticket
	nextUserID int
	nextNumber int
	nextMsgID  int64
}

func NewServer() *Server {
	s := &Server{nextUserID: 1, nextNumber: 1, nextMsgID: 1}
	s.users = append(s.users, User{
		ID:       s.nextUserID,
		Username: "admin",
		Password: "admin",
		IsStaff:  true,
		Token:    "stub-admin-token",
	})
	s.nextUserID++
	return s
}

// AdminToken returns the seeded admin account's token.
func (s *Server) AdminToken() string {
	return "stub-admin-token"
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login/", s.handleLogin)
	mux.HandleFunc("POST /auth/register/", s.handleRegister)
	mux.HandleFunc("GET /auth/me/", s.handleMe)
	mux.HandleFunc("GET /tickets/my/", s.handleMyTickets)
	mux.HandleFunc("POST /tickets/create/", s.handleCreate)
	mux.HandleFunc("POST /messages/create/", s.handleCreateMessage)
	mux.HandleFunc("GET /admin/tickets/", s.handleAdminAll)
	mux.HandleFunc("GET /admin/tickets/pending/", s.handleAdminPending)
	mux.HandleFunc("GET /tickets/", s.handleTicketRoutes)
	mux.HandleFunc("GET /admin/tickets/{uid}/", s.handleAdminDetail)
	mux.HandleFunc("POST /admin/tickets/{uid}/action/", s.handleAction)
	return mux
}

func (s *Server) auth(r *http.Request) *User {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Token ")
	if !ok {
		return nil
	}
	for i := range s.users {
		if s.users[i].Token == token {
			return &s.users[i]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {msg}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		fieldError(w, "detail", "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == creds.Username && u.Password == creds.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"token":    u.Token,
				"is_admin": u.IsStaff,
				"user_id":  u.ID,
			})
			return
		}
	}
	fieldError(w, "detail", "invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		fieldError(w, "username", "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username {
			fieldError(w, "username", "already taken")
			return
		}
	}
	user := User{
		ID:        s.nextUserID,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Token:     "stub-token-" + uuid.NewString(),
	}
	s.nextUserID++
	s.users = append(s.users, user)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    user.Token,
		"is_admin": false,
		"user_id":  user.ID,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"is_staff": user.IsStaff,
	})
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}

	filter := r.URL.Query().Get("is_open")
	out := []*Ticket{}
	for _, t := range s.tickets {
		if t.OwnerID != user.ID {
			continue
		}
		if filter != "" && strconv.FormatBool(t.IsOpen) != filter {
			continue
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		fieldError(w, "detail", "expected a multipart form")
		return
	}
	if len(r.MultipartForm.File["attachments"]) == 0 {
		fieldError(w, "attachments", "at least one attachment is required")
		return
	}
	title := r.FormValue("title")
	if title == "" {
		fieldError(w, "title", "required")
		return
	}

	ticket := &Ticket{
		UID:          uuid.NewString(),
		TicketNumber: s.nextNumber,
		Title:        title,
		Description:  r.FormValue("description"),
		FirstName:    r.FormValue("first_name"),
		LastName:     r.FormValue("last_name"),
		IsOpen:       true,
		Messages:     []Message{},
		OwnerID:      user.ID,
	}
	s.nextNumber++
	s.tickets = append(s.tickets, ticket)
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) findTicket(uid string) *Ticket {
	for _, t := range s.tickets {
		if t.UID == uid || strconv.Itoa(t.TicketNumber) == uid {
			return t
		}
	}
	return nil
}

// handleTicketRoutes covers GET /tickets/{id}/ and its receipt
// sub-path; both identify the ticket by uid or number.
func (s *Server) handleTicketRoutes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	ticket := s.findTicket(parts[1])
	if ticket == nil {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 3 && parts[2] == "receipt" {
		s.serveReceipt(w, r, ticket)
		return
	}

	user := s.auth(r)
	if user == nil || (ticket.OwnerID != user.ID && !user.IsStaff) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "not yours"})
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) serveReceipt(w http.ResponseWriter, r *http.Request, ticket *Ticket) {
	user := s.auth(r)
	owns := user != nil && (ticket.OwnerID == user.ID || user.IsStaff)
	if !owns {
		q := r.URL.Query()
		if q.Get("first_name") != ticket.FirstName || q.Get("last_name") != ticket.LastName {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "name verification required"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_number": ticket.TicketNumber,
		"first_name":    ticket.FirstName,
		"last_name":     ticket.LastName,
		"title":         ticket.Title,
		"description":   ticket.Description,
		"is_open":       ticket.IsOpen,
	})
}

func (s *Server) handleAdminAll(w http.ResponseWriter, r *http.Request) {
	s.adminList(w, r, false)
}

func (s *Server) handleAdminPending(w http.ResponseWriter, r *http.Request) {
	s.adminList(w, r, true)
}

func (s *Server) adminList(w http.ResponseWriter, r *http.Request, openOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil || !user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "admin only"})
		return
	}
	out := []*Ticket{}
	for _, t := range s.tickets {
		if openOnly && !t.IsOpen {
			continue
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil || !user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "admin only"})
		return
	}
	ticket := s.findTicket(r.PathValue("uid"))
	if ticket == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}
	var req struct {
		TicketUID string `json:"ticket_uid"`
		Sender    string `json:"sender"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fieldError(w, "detail", "malformed request")
		return
	}
	ticket := s.findTicket(req.TicketUID)
	if ticket == nil {
		http.NotFound(w, r)
		return
	}
	if !ticket.IsOpen && !user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "ticket is closed"})
		return
	}
	ticket.Messages = append(ticket.Messages, Message{
		ID:      s.nextMsgID,
		Sender:  req.Sender,
		Content: req.Content,
	})
	s.nextMsgID++
	if user.IsStaff {
		ticket.UnreadCount = 0
	} else {
		ticket.UnreadCount++
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.auth(r)
	if user == nil || !user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "admin only"})
		return
	}
	ticket := s.findTicket(r.PathValue("uid"))
	if ticket == nil {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Action       string `json:"action"`
		AssignUserID string `json:"assign_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fieldError(w, "detail", "malformed request")
		return
	}

	switch req.Action {
	case "close":
		ticket.IsOpen = false
	case "reopen":
		ticket.IsOpen = true
	case "assign":
		if req.AssignUserID == "" {
			fieldError(w, "assign_user_id", "required")
			return
		}
	default:
		fieldError(w, "action", fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
