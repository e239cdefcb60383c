package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
)

// HTTPError is a non-2xx response from the LearnDB service.
type HTTPError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "learndb: http error"
	}
	msg := strings.TrimSpace(e.Detail)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("learndb: status=%d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// Is maps status codes onto the shared sentinels so callers can use errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case pkgerrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case pkgerrors.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case pkgerrors.ErrInvalidArgument:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// parseHTTPError understands {"detail": "..."} and the validation form
// {"detail": [{"msg": "..."}]}.
func parseHTTPError(status int, raw []byte) error {
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Detail) == 0 {
		return herr
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		herr.Detail = strings.TrimSpace(s)
		return herr
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		herr.Detail = strings.Join(msgs, "; ")
	}
	return herr
}
