package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/moyoez/castanet/keys"
	"github.com/moyoez/castanet/setup"
)

// Step names one stage of a provisioning run.
type Step string

const (
	StepValidate  Step = "validate"
	StepPreflight Step = "preflight"
	StepFetch     Step = "fetch"
	StepScan      Step = "scan"
	StepEncrypt   Step = "encrypt"
	StepConnect   Step = "connect"
	StepSave      Step = "save"
	StepRename    Step = "rename"
)

// ErrorCategory tells callers what kind of failure stopped a run.
type ErrorCategory int

const (
	// ErrCatConfig means the options are unusable; retrying will not help.
	ErrCatConfig ErrorCategory = iota
	// ErrCatTransport means the device could not be reached; may resolve on retry.
	ErrCatTransport
	// ErrCatDevice means the device answered with something unusable.
	ErrCatDevice
	// ErrCatCrypto means the device key or the encryption was bad.
	ErrCatCrypto
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCatConfig:
		return "config"
	case ErrCatTransport:
		return "transport"
	case ErrCatDevice:
		return "device"
	case ErrCatCrypto:
		return "crypto"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidOptions  = errors.New("invalid provisioning options")
	ErrNetworkNotFound = errors.New("wifi network not found")
)

// StepError wraps the error that aborted a run with the step and its category.
type StepError struct {
	Step     Step
	Category ErrorCategory
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Transient reports whether retrying the run could succeed.
func (e *StepError) Transient() bool { return e.Category == ErrCatTransport }

// Category extracts the error category. Unclassified errors count as device errors.
func Category(err error) ErrorCategory {
	var se *StepError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrCatDevice
}

func stepError(step Step, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Category: classify(err), Err: err}
}

func classify(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrInvalidOptions):
		return ErrCatConfig
	case errors.Is(err, keys.ErrInvalidKey):
		return ErrCatCrypto
	case errors.Is(err, setup.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ErrCatTransport
	case errors.Is(err, setup.ErrMalformedResponse),
		errors.Is(err, setup.ErrUnexpectedStatus),
		errors.Is(err, ErrNetworkNotFound):
		return ErrCatDevice
	default:
		return ErrCatDevice
	}
}
