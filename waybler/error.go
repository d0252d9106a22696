package waybler

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration  = errors.New("invalid configuration")
	ErrAuthentication = errors.New("authentication failed")
	ErrConnection     = errors.New("feed connection failed")
)

// APIError is returned for any non-2xx response from the vendor API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// ParseError wraps a feed message that could not be decoded.
type ParseError struct {
	ModelType string
	Err       error
}

func (e *ParseError) Error() string {
	if e.ModelType == "" {
		return fmt.Sprintf("unable to parse feed message: %v", e.Err)
	}
	return fmt.Sprintf("unable to parse %s message: %v", e.ModelType, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
