package client

import (
	"fmt"
	"net/http"
)

// maxErrorBody caps the response body kept in a StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("client: unexpected status %s", e.Status)
	}
	return fmt.Sprintf("client: unexpected status %s: %s", e.Status, e.Body)
}
