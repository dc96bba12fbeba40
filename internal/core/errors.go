package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine, the reconciler and the transports.
var (
	ErrUnknownOperator    = errors.New("unknown operator")
	ErrUnknownSIM         = errors.New("unknown sim")
	ErrMissingSIM         = errors.New("no sim registered for operator")
	ErrTransferBusy       = errors.New("a transfer is already pending for this operator")
	ErrAmbiguousState     = errors.New("ambiguous state: manual intervention required")
	ErrNoResponse         = errors.New("backend returned no response")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendTimeout     = errors.New("backend timed out")
	ErrNotImplemented     = errors.New("not implemented")
	// ErrTransferUnrecorded: the command went out but the pending transfer
	// could not be stored. Never retry; the transfer may already be done.
	ErrTransferUnrecorded = errors.New("transfer sent but not recorded")
)

// ValidationCode identifies why a request was rejected before any I/O.
type ValidationCode string

const (
	InternationalPrefix ValidationCode = "international_prefix"
	MissingField        ValidationCode = "missing_field"
	InvalidAmount       ValidationCode = "invalid_amount"
)

// ValidationError is returned for requests rejected before any backend call.
type ValidationError struct {
	Code    ValidationCode
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("validation error [%s]: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a ValidationError with the given code.
func IsValidation(err error, code ValidationCode) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}

// ConfigError reports a bad operator directory source. Fatal at startup.
type ConfigError struct {
	Source string
	Record int // zero based; -1 when the whole source is at fault
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Record < 0:
		return fmt.Sprintf("config %s: %v", e.Source, e.Err)
	case e.Field != "":
		return fmt.Sprintf("config %s: record %d: %s: %v", e.Source, e.Record, e.Field, e.Err)
	default:
		return fmt.Sprintf("config %s: record %d: %v", e.Source, e.Record, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BackendError wraps a failure reported by the modem backend that is neither
// a missing backend nor a timeout.
type BackendError struct {
	BackendID string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.BackendID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Reason maps an error to the short text shown to whoever issued the command.
func Reason(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransferUnrecorded):
		return "Needs operator attention"
	case errors.As(err, &ve):
		switch ve.Code {
		case InternationalPrefix:
			return "Please try again without international prefix"
		case MissingField:
			return "Please provide a " + ve.Field
		case InvalidAmount:
			return "Please provide a whole, positive amount"
		}
		return ve.Message
	case errors.Is(err, ErrTransferBusy), errors.Is(err, ErrNoResponse), errors.Is(err, ErrBackendTimeout):
		return "Please try again later."
	case errors.Is(err, ErrUnknownOperator):
		return "Unknown operator"
	case errors.Is(err, ErrUnknownSIM), errors.Is(err, ErrMissingSIM):
		return "No SIM available"
	case errors.Is(err, ErrBackendUnavailable):
		return "Modem unavailable"
	case errors.Is(err, ErrAmbiguousState):
		return "Needs operator attention"
	case errors.Is(err, ErrNotImplemented):
		return "Not supported"
	}
	var be *BackendError
	if errors.As(err, &be) {
		return "Modem error"
	}
	return unknownReason
}

const unknownReason = "Unknown. Please try again later."

// Known reports whether err belongs to the taxonomy above. Anything else is
// an infrastructure failure (store, broker) that a caller may retry.
func Known(err error) bool {
	return err != nil && Reason(err) != unknownReason
}
