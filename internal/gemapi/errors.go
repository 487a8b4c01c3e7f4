package gemapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/johnrirwin/gemlisting/internal/models"
)

const maxErrorBodyRunes = 300

// APIError is a non-success answer from the marketplace backend
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// MessageOf returns the backend message carried by err, or err's own text
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// newAPIError builds an APIError from a response body that may be a JSON
// envelope, an HTML error page from a proxy, or plain text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env models.APIResponse
		if err := json.Unmarshal(trimmed, &env); err == nil {
			apiErr.Message = firstNonEmpty(env.Message, env.Error)
		}
	}

	if apiErr.Message == "" && looksLikeHTML(trimmed) {
		apiErr.Message = htmlSummary(trimmed)
	}
	if apiErr.Message == "" {
		apiErr.Message = truncate(strings.TrimSpace(string(trimmed)), maxErrorBodyRunes)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func looksLikeHTML(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// htmlSummary reduces an HTML error page to its title, or its visible text
func htmlSummary(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return truncate(text, maxErrorBodyRunes)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
