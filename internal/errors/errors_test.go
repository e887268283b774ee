package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/thermloop/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesCode(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidInterval)

	assert.Equal(t, errors.ErrInvalidInterval, err.Code())
	assert.Contains(t, err.Error(), "Invalid poll interval")
	assert.Contains(t, err.Error(), "invalid_interval")
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.New().Wrap(errors.ErrOperationFailed, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "boom")
}

func TestHasCodeWalksChain(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrInvalidLogLevel)
	outer := f.Wrap(errors.ErrInvalidConfig, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidLogLevel))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrTimeout))
}

func TestWithDataOverridesCause(t *testing.T) {
	err := errors.New().WithData(errors.ErrInvalidArgument, "toggle path missing")

	assert.Equal(t, "toggle path missing", err.GetData())
	assert.Contains(t, err.Error(), "toggle path missing")
}

func TestRegisteredMessageReplacesCode(t *testing.T) {
	const code = errors.ErrorCode("test_registered_code")
	errors.RegisterMessages(map[errors.ErrorCode]string{code: "Registered failure"})

	err := errors.New().Wrap(code, stderrors.New("cause"))
	assert.Equal(t, "Registered failure (test_registered_code): cause", err.Error())
}

func TestUnregisteredCodeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "not_registered", errors.GetErrorMessage("not_registered"))
}
