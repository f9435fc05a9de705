package relay

import (
	"fmt"
	"net/http"
	"strings"

	"chatseal/internal/domain"
)

// StatusError is a non-2xx reply from the relay.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Message    string // server-supplied detail, if any
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("relay %s %s: %s", strings.ToLower(e.Method), e.URL, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap maps well-known statuses onto the domain error taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusForbidden:
		return domain.ErrNotParticipant
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidRecord
	}
	return nil
}
