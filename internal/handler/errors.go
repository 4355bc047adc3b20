package handler

import "errors"

var (
	// ErrUnfeasible wraps the reason a request cannot be honoured. The reason
	// is sent back to the client as an error notification.
	ErrUnfeasible    = errors.New("unfeasible")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoLongerExist = errors.New("no longer exist")
	ErrNotAllowed    = errors.New("message not allowed")
)

type unfeasibleError struct {
	reason error
}

func unfeasible(reason error) error {
	return &unfeasibleError{reason: reason}
}

func (e *unfeasibleError) Error() string {
	return e.reason.Error()
}

func (e *unfeasibleError) Unwrap() []error {
	return []error{ErrUnfeasible, e.reason}
}
