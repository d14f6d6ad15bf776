package kagi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates a 401 response (the token was rejected).
	ErrUnauthorized = errors.New("kagi: unauthorized (check API token)")
	// ErrForbidden indicates a 403 response.
	ErrForbidden = errors.New("kagi: forbidden")
	// ErrRateLimited indicates a 429 response. The client never retries;
	// backoff policy belongs to the caller.
	ErrRateLimited = errors.New("kagi: rate limited")
)

// APIError models a non-2xx response other than auth and rate-limit
// failures. Message is the first error message from the API payload, if
// the body carried one.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("kagi api error: %s (status=%d)", e.Message, e.Status)
	}
	return fmt.Sprintf("kagi api error (status=%d)", e.Status)
}

// DecodeError indicates a 2xx response whose body did not match the
// expected schema.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("kagi: decoding %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wireErrorBody is the error payload shape the API returns alongside
// non-2xx statuses.
type wireErrorBody struct {
	Error []struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}
