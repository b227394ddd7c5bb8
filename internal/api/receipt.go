package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"opora/internal/models"
)

// ErrNeedNames signals that the receipt endpoint answered 401: the
// requester does not own the ticket and must verify with the first and
// last name used on the ticket.
var ErrNeedNames = fmt.Errorf("receipt: name verification required")

// Receipt fetches the receipt for a ticket (by number or uid). First
// and last name are optional query parameters for anonymous access.
func (c *Client) Receipt(ctx context.Context, ticket, firstName, lastName string) (models.Receipt, error) {
	endpoint := c.url("/tickets/" + url.PathEscape(ticket) + "/receipt/")
	params := url.Values{}
	if firstName != "" {
		params.Set("first_name", firstName)
	}
	if lastName != "" {
		params.Set("last_name", lastName)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	res, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return models.Receipt{}, err
	}
	if res.Status == http.StatusUnauthorized {
		return models.Receipt{}, ErrNeedNames
	}
	if !res.OK() {
		return models.Receipt{}, fmt.Errorf("receipt for %s returned status %d", ticket, res.Status)
	}

	var receipt models.Receipt
	if err := res.Decode(&receipt); err != nil {
		return models.Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}

// ReceiptPDF downloads the rendered PDF receipt. Name fields go in a
// form-encoded body.
func (c *Client) ReceiptPDF(ctx context.Context, ticket, firstName, lastName string) ([]byte, error) {
	form := url.Values{}
	if firstName != "" {
		form.Set("first_name", firstName)
	}
	if lastName != "" {
		form.Set("last_name", lastName)
	}

	endpoint := c.url("/tickets/" + url.PathEscape(ticket) + "/receipt.pdf")
	res, err := c.do(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("receipt pdf for %s returned status %d", ticket, res.Status)
	}

	// The PDF arrives as an opaque body; the decode policy will have
	// classified it as text.
	switch res.Kind {
	case KindText:
		return []byte(res.Text), nil
	case KindJSON:
		return []byte(res.JSON), nil
	default:
		return nil, fmt.Errorf("receipt pdf for %s: empty response", ticket)
	}
}
