package brain

import (
	"errors"
	"fmt"
)

// ErrNoCredential is returned before any network call when no API key is set.
var ErrNoCredential = errors.New("brain: missing api key")

// ModelError reports a failed completion attempt against the chat endpoint.
// Status is zero for transport-level failures.
type ModelError struct {
	Status  int
	Message string
}

func (e *ModelError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("brain: model error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("brain: model error: %s", e.Message)
}

// AsModelError unwraps err into a ModelError when possible.
func AsModelError(err error) (*ModelError, bool) {
	var me *ModelError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
