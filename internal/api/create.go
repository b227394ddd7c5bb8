package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// AttachmentUpload is one file to attach to a new ticket, read fully
// into memory before upload. Attachments are screenshots and small
// documents, not bulk data.
type AttachmentUpload struct {
	Name string
	Data []byte
}

// ReadAttachment loads a local file into an AttachmentUpload.
func ReadAttachment(path string) (AttachmentUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AttachmentUpload{}, fmt.Errorf("read attachment: %w", err)
	}
	return AttachmentUpload{Name: filepath.Base(path), Data: data}, nil
}

type CreateTicketRequest struct {
	FirstName   string
	LastName    string
	Title       string
	Description string
	Attachments []AttachmentUpload
}

func (r CreateTicketRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" || r.Title == "" || r.Description == "" {
		return fmt.Errorf("all fields are required")
	}
	if len(r.Attachments) == 0 {
		return fmt.Errorf("at least one attachment is required")
	}
	return nil
}

type CreatedTicket struct {
	UID          string
	TicketNumber int
}

// CreateTicket submits a new ticket as a multipart form. Every
// attachment goes under the same "attachments" field name; the part
// content type is sniffed from the file bytes.
func (c *Client) CreateTicket(ctx context.Context, req CreateTicketRequest) (CreatedTicket, FieldErrors, error) {
	if err := req.Validate(); err != nil {
		return CreatedTicket{}, FieldErrors{"detail": {err.Error()}}, nil
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := map[string]string{
		"first_name":  req.FirstName,
		"last_name":   req.LastName,
		"title":       req.Title,
		"description": req.Description,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return CreatedTicket{}, nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	for _, a := range req.Attachments {
		part, err := form.CreatePart(attachmentHeader(a))
		if err != nil {
			return CreatedTicket{}, nil, fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return CreatedTicket{}, nil, fmt.Errorf("write attachment %s: %w", a.Name, err)
		}
	}
	if err := form.Close(); err != nil {
		return CreatedTicket{}, nil, fmt.Errorf("finalize form: %w", err)
	}

	res, err := c.do(ctx, http.MethodPost, c.url("/tickets/create/"), &buf, form.FormDataContentType())
	if err != nil {
		return CreatedTicket{}, nil, err
	}
	if !res.OK() {
		return CreatedTicket{}, parseFieldErrors(res), nil
	}

	var payload struct {
		UID          string `json:"uid"`
		TicketNumber int    `json:"ticket_number"`
		ID           int    `json:"id"`
	}
	if err := res.Decode(&payload); err != nil {
		return CreatedTicket{}, nil, fmt.Errorf("decode create response: %w", err)
	}
	number := payload.TicketNumber
	if number == 0 {
		number = payload.ID
	}
	return CreatedTicket{UID: payload.UID, TicketNumber: number}, nil, nil
}

func attachmentHeader(a AttachmentUpload) textproto.MIMEHeader {
	contentType := "application/octet-stream"
	if kind, err := filetype.Match(a.Data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename="%s"`, escapeQuotes(a.Name)))
	h.Set("Content-Type", contentType)
	return h
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
