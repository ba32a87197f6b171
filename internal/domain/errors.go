package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyFinal        = errors.New("generation already in a terminal state")
	ErrInsufficientBalance = errors.New("insufficient generation balance")
	ErrUnknownEffect       = errors.New("no provider mapped to effect")
	ErrDownloadTimeout     = errors.New("source download timed out")
)

// StepError marks a failure inside a named pipeline step. The step name is
// carried for logging and for the user-facing failure message.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// NewStepError wraps err as a failure of the given step.
func NewStepError(step string, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

// CreaseRepairError distinguishes a failure of the optional damage-repair
// stage from generic step failures. On a first attempt with the stage enabled
// the worker suspends the job and asks the user whether to continue without
// repair instead of failing outright. SourcePath points at the already
// downloaded source so the retry can reuse it.
type CreaseRepairError struct {
	SourcePath string
	Err        error
}

func (e *CreaseRepairError) Error() string {
	return fmt.Sprintf("damage repair: %v", e.Err)
}

func (e *CreaseRepairError) Unwrap() error { return e.Err }
