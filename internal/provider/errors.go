package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const errorBodyLimit = 512

// StatusError is returned when a backend answers with a non-2xx status.
// Its message always carries the status line so callers that only see the
// text (logs, the chat error classifier) can still tell a 401 from a 503.
type StatusError struct {
	Provider   string
	StatusCode int
	Status     string // e.g. "401 Unauthorized"
	Message    string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %s", e.Provider, status)
	}
	return fmt.Sprintf("%s: HTTP %s: %s", e.Provider, status, e.Message)
}

// newStatusError reads a bounded error body from resp and extracts a
// human-readable message from the common {"error":{"message":...}} and
// {"error":"..."} envelopes, falling back to the raw text.
func newStatusError(provider string, resp *http.Response) *StatusError {
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(readErrorBody(resp.Body)),
	}
}

func errorMessage(body string) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &nested); err == nil && nested.Error.Message != "" {
		if nested.Error.Status != "" {
			return nested.Error.Status + ": " + nested.Error.Message
		}
		return nested.Error.Message
	}

	var flat struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal([]byte(body), &flat); err == nil && flat.Error != "" {
		if flat.Details != "" {
			return flat.Error + ": " + errorMessage(flat.Details)
		}
		return flat.Error
	}
	return body
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "unknown error"
	}
	return text
}
