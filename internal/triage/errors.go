package triage

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a submit arrives while another one is still in flight
var ErrBusy = errors.New("an enrichment request is already in progress")

// ValidationError is a problem with the submitted input. No request was sent.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError wraps a failed enrichment call: a non-2xx status, a network failure
// or an unreadable response body
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("enrichment failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
