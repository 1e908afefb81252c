package loyalty

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest     = errors.New("invalid run request")
	ErrParsingFailed      = errors.New("failed to parse page content")
	ErrBalanceUnavailable = errors.New("balance unavailable")
)

// StepError provides stage context for a failed pipeline stage.
type StepError struct {
	Program ProgramCode
	Stage   Stage
	Cause   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("[%s] %s failed: %v", e.Program, e.Stage, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}
