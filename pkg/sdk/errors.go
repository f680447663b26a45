package ragquery

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError through errors.Is.
var (
	ErrMissingQuery = errors.New("missing query")
	ErrMissingText  = errors.New("missing text")
	// ErrNoAnswer signals a successful response that carried no answer.
	ErrNoAnswer = errors.New("no answer")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ragquery: %d %s", e.Status, e.Message)
}

// Is maps the server's validation messages to sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrMissingQuery:
		return e.Message == "Missing query"
	case ErrMissingText:
		return e.Message == "Missing text"
	}
	return false
}
