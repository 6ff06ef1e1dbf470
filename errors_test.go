package atsreport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(&StageError{Stage: StageInit, Err: cause}))
	assert.Equal(t, 2, ExitCode(&StageError{Stage: StageFetch, Err: cause}))
	assert.Equal(t, 3, ExitCode(&StageError{Stage: StageFormat, Err: cause}))
	assert.Equal(t, 4, ExitCode(&StageError{Stage: StageSend, Err: cause}))
	assert.Equal(t, 4, ExitCode(fmt.Errorf("wrapped: %w", &StageError{Stage: StageSend, Err: cause})))
	assert.Equal(t, StageInit.ExitCode(), ExitCode(cause))
}

func TestStageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &StageError{Stage: StageFetch, Err: cause}
	assert.Equal(t, "fetch: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
