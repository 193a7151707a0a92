// Package errs separates errors the API may show a caller from errors
// that stay in the logs.
package errs

import "errors"

// Response is the body returned for any failed API request.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted carries an error whose message is safe to return to the
// caller, together with the status code to use.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted marks an expected handler error as safe for the caller
// and binds it to an HTTP status code.
func NewTrusted(err error, status int) error {
	return &Trusted{
		Err:    err,
		Status: status,
	}
}

// Error implements the error interface with the wrapped message.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// IsTrusted reports whether the chain contains a trusted error.
func IsTrusted(err error) bool {
	var t *Trusted
	return errors.As(err, &t)
}

// GetTrusted extracts the trusted error from the chain, or nil.
func GetTrusted(err error) *Trusted {
	var t *Trusted
	if !errors.As(err, &t) {
		return nil
	}

	return t
}
