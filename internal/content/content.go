package content

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	// stripPolicy removes every HTML tag. Message content is rendered in
	// a terminal, so markup from the server is noise at best.
	stripPolicy = bluemonday.StrictPolicy()
	// exportPolicy keeps user-generated-content-safe HTML for the
	// receipt/transcript export files.
	exportPolicy = bluemonday.UGCPolicy()

	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Sanitize strips HTML from server-provided text for terminal display.
// Entities are unescaped afterwards so "&amp;" reads as "&".
func Sanitize(input string) string {
	return html.UnescapeString(stripPolicy.Sanitize(input))
}

// RenderMarkdown converts markdown to sanitized HTML. Used when
// exporting a receipt or chat transcript to an HTML file for sharing.
func RenderMarkdown(input string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return exportPolicy.Sanitize(buf.String()), nil
}

// ValidateHexColor checks a bubble color preference ("#rgb" or
// "#rrggbb"). An empty value is allowed and means "use the default".
func ValidateHexColor(value string) error {
	if value == "" {
		return nil
	}
	if !hexColorRegex.MatchString(value) {
		return errors.New("color must be a hex value like #2b6cb0")
	}
	return nil
}
