package auth

import "fmt"

// AuthError reports a failure to obtain usable credentials: a missing or
// malformed client secret, an aborted consent flow, or a failed token exchange.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authError(op string, err error) error {
	return &AuthError{Op: op, Err: err}
}
