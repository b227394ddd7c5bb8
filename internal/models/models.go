package models

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated means there is no stored session token.
	// Callers route to the login screen.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAuthorized maps 401/403 responses.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrConfirmationRequired is returned by the dispatcher when a close
	// action is attempted without an explicit user confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Session is the locally persisted authentication state. An empty Token
// means the user must authenticate before any ticket operation.
type Session struct {
	Token   string `json:"token"`
	IsAdmin bool   `json:"isAdmin"`
	UserID  string `json:"userId"`
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// StatusFilter is a client-side view parameter for ticket lists.
type StatusFilter string

const (
	// FilterNotComplete maps to the dedicated pending endpoint.
	FilterNotComplete StatusFilter = "not_complete"
	// FilterAll fetches the full collection.
	FilterAll StatusFilter = "all"
	// FilterCompleted fetches the full collection and keeps closed tickets.
	FilterCompleted StatusFilter = "completed"
)

// Ticket is the client's view projection of a server-owned ticket.
// The client never mutates a ticket directly, only through actions
// that request a server-side transition.
type Ticket struct {
	UID          string `json:"uid"`
	TicketNumber int    `json:"ticketNumber,omitempty"`
	Title        string `json:"title"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	UnreadCount  int    `json:"unreadCount"`
	CreatedAt    string `json:"createdAt"`
	IsOpen       bool   `json:"isOpen"`
	LastMessage  string `json:"lastMessage"`
	ClosedBy     string `json:"closedBy,omitempty"`
	ClosedAt     string `json:"closedAt,omitempty"`
}

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Message ordering is server-assigned: array order is chronological and
// the client never reorders.
type Message struct {
	ID        int64  `json:"id"`
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type Attachment struct {
	ID       int64  `json:"id"`
	File     string `json:"file"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Identity is the /auth/me/ payload.
type Identity struct {
	Username    string `json:"username"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (i Identity) IsAdmin() bool {
	return i.IsStaff || i.IsSuperuser
}

// Receipt is the server-generated confirmation record for a ticket.
type Receipt struct {
	TicketNumber int    `json:"ticket_number"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	IsOpen       bool   `json:"is_open"`
}

// BubblePrefs are locally stored chat bubble colors (hex), never sent to
// the server.
type BubblePrefs struct {
	UserBackground  string `json:"bubbleUser"`
	UserText        string `json:"bubbleUserText"`
	AdminBackground string `json:"bubbleAdmin"`
	AdminText       string `json:"bubbleAdminText"`
}

// CanCompose decides whether the message input and send control are
// enabled for a ticket. Non-admins cannot post to a closed ticket;
// admins always can. Both the input field and the send control consume
// this predicate so they can never disagree.
func CanCompose(isAdmin, isOpen bool) bool {
	return isAdmin || isOpen
}
