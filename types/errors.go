package types

import "errors"

const (
	reasonNotFound = "not found"
	reasonUnknown  = "resolution failed"
)

// ResolutionError reports that the upstream lookup for a domain failed:
// the name does not exist, the server refused, the network is unreachable...
//
// Error returns only Reason so that callers can show it to a user as-is.
type ResolutionError struct {
	Domain string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	}
	return reasonUnknown
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NotFound builds the error returned when a domain has no such host.
func NotFound(domain string, err error) *ResolutionError {
	return &ResolutionError{Domain: domain, Reason: reasonNotFound, Err: err}
}

// IsNotFound reports whether err says the domain does not exist.
func IsNotFound(err error) bool {
	var rerr *ResolutionError
	return errors.As(err, &rerr) && rerr.Reason == reasonNotFound
}
