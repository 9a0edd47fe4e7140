package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any StatusError caused by a rejected bearer credential.
var ErrUnauthorized = errors.New("ledger service rejected the credentials")

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Resource   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("ledger service %s: unexpected status %d: %s", e.Resource, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("ledger service %s: unexpected status %d", e.Resource, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}
