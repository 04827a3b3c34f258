package justwatch

import (
	"errors"
	"fmt"
)

// ErrCatalogUnavailable is returned when the catalog could not answer a search
// after all retries (network failure, protocol error, persistent 5xx).
var ErrCatalogUnavailable = errors.New("justwatch catalog unavailable")

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("justwatch returned status %d", e.code)
	}
	return fmt.Sprintf("justwatch returned status %d: %s", e.code, e.body)
}

type graphQLError struct {
	messages []string
}

func (e *graphQLError) Error() string {
	if len(e.messages) == 0 {
		return "justwatch graphql error"
	}
	return "justwatch graphql error: " + e.messages[0]
}
