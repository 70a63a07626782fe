package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIntentSet is returned when a transaction is broadcast before SetIntent.
	ErrNoIntentSet = errors.New("no transaction intent set")

	// ErrSessionNotInitialized is returned when the session lacks the key material its mode requires.
	ErrSessionNotInitialized = errors.New("session not initialized")

	// ErrMalformedResponse is returned when the server answers without the expected fields.
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrLoginFailed is returned when a delegated signer refuses a login.
	ErrLoginFailed = errors.New("login failed")

	ErrNonceOutOfRange = errors.New("nonce out of range")
)

// SigningFailedError reports that the signer refused or failed to sign.
type SigningFailedError struct {
	Reason string
}

func (e *SigningFailedError) Error() string {
	return fmt.Sprintf("signing failed: %s", e.Reason)
}

// TransportError wraps network failures and non-2xx responses. StatusCode is 0
// when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SubmissionRejectedError carries the server's error message.
type SubmissionRejectedError struct {
	Message string
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Message)
}

// DecodeError reports malformed base64url or DAG-CBOR input.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// BroadcastError wraps failures that do not fit another category.
type BroadcastError struct {
	Cause error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed: %v", e.Cause)
}

func (e *BroadcastError) Unwrap() error {
	return e.Cause
}

// IsKnown reports whether err already belongs to the broadcast error taxonomy.
func IsKnown(err error) bool {
	if errors.Is(err, ErrNoIntentSet) ||
		errors.Is(err, ErrSessionNotInitialized) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrLoginFailed) ||
		errors.Is(err, ErrNonceOutOfRange) {
		return true
	}
	var (
		signErr      *SigningFailedError
		transportErr *TransportError
		rejectErr    *SubmissionRejectedError
		decodeErr    *DecodeError
		broadcastErr *BroadcastError
	)
	return errors.As(err, &signErr) ||
		errors.As(err, &transportErr) ||
		errors.As(err, &rejectErr) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &broadcastErr)
}
