package atsreport

import (
	"errors"
	"fmt"
)

// ExitOK is the exit code of a successful run
const ExitOK = 0

// Stage is one step of a run. Its value is the exit code of a failure in it.
type Stage int

const (
	StageInit Stage = iota + 1
	StageFetch
	StageFormat
	StageSend
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageFetch:
		return "fetch"
	case StageFormat:
		return "format"
	case StageSend:
		return "send"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ExitCode is the process exit code for a failure in the stage
func (s Stage) ExitCode() int {
	return int(s)
}

// StageError is the error returned by a failed run
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExitCode maps the result of a run to the process exit code. Runner.Run
// only returns *StageError values; any other error means the run never got
// past setting itself up and is reported as an init failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage.ExitCode()
	}
	return StageInit.ExitCode()
}
