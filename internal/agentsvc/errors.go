package agentsvc

import (
	"errors"
	"fmt"
)

// ErrMissingField is wrapped by errors for responses lacking a field the
// caller depends on.
var ErrMissingField = errors.New("missing field in response")

func missingField(what, field string) error {
	return fmt.Errorf("%s: %w: %s", what, ErrMissingField, field)
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agent service: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("agent service: HTTP %d: %s", e.StatusCode, e.Message)
}

// RunError reports a run that reached a terminal status other than
// completed.
type RunError struct {
	RunID  string
	Status RunStatus
	Fault  *RunFault
}

func (e *RunError) Error() string {
	if e.Fault != nil {
		return fmt.Sprintf("run %s %s: %s: %s", e.RunID, e.Status, e.Fault.Code, e.Fault.Message)
	}
	return fmt.Sprintf("run %s %s", e.RunID, e.Status)
}
