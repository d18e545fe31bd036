package mode

import (
	"fmt"
)

// SetupError reports a failed setup or teardown hook. The case is skipped.
type SetupError struct {
	TestCase string
	Phase    string // "setup" or "teardown"
	Cause    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.TestCase, e.Phase, e.Cause)
}

func (e *SetupError) Unwrap() error {
	return e.Cause
}

// ExecutionError reports a failure of the measured body. Run 0 is the warmup.
type ExecutionError struct {
	TestCase string
	Run      int
	Cause    error
}

func (e *ExecutionError) Error() string {
	if e.Run == 0 {
		return fmt.Sprintf("%s: warmup failed: %v", e.TestCase, e.Cause)
	}
	return fmt.Sprintf("%s: run %d failed: %v", e.TestCase, e.Run, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a case aborted by its deadline
type TimeoutError struct {
	TestCase string
	Run      int
	Cause    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out during run %d: %v", e.TestCase, e.Run, e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
