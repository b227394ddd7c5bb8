package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DownloadAttachment streams an attachment body. fileURL may be
// absolute (the server usually returns full media URLs) or a path
// relative to the API base. The caller owns the returned reader.
func (c *Client) DownloadAttachment(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	endpoint := fileURL
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = c.url("/" + strings.TrimLeft(endpoint, "/"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", endpoint, resp.StatusCode)
	}
	return resp.Body, nil
}
