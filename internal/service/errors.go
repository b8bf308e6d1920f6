// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure reported by the conversion service: a non-success
// status, or a success status whose body could not be understood.
type Error struct {
	Endpoint   Endpoint
	StatusCode int
	// Message is the text shown to the user.
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// TransportError is a failure to reach the service or read its response.
type TransportError struct {
	Endpoint Endpoint
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// maxMessageLen bounds plain-text error bodies surfaced to the user.
const maxMessageLen = 500

// errorMessage extracts the server's message from a failure body: the JSON
// "error" field if present, the trimmed text otherwise, and a generic
// status line when the body is empty.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return strings.TrimSpace(payload.Error)
	}

	text := strings.TrimSpace(string(body))
	if text != "" {
		if len(text) > maxMessageLen {
			text = text[:maxMessageLen] + "..."
		}
		return text
	}

	return fmt.Sprintf("Server responded %d %s", status, http.StatusText(status))
}
