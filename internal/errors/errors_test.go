package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := Wrap(base, ErrFileAccess, "copy asset")

	assert.Equal(t, "[FILE_ACCESS] copy asset: disk full", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsErrorCode(err, ErrFileAccess))
	assert.False(t, IsErrorCode(err, ErrPlugin))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrPlugin, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrPlugin, "nothing %d", 1))
}

func TestIsByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrBuildFailed, "2 errors"))

	assert.True(t, errors.Is(err, New(ErrBuildFailed, "")))
	assert.False(t, errors.Is(err, New(ErrConfigLoad, "")))
	assert.Equal(t, ErrBuildFailed, GetErrorCode(err))
	assert.Equal(t, ErrUnknown, GetErrorCode(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := Newf(ErrProcess, "exit %d", 2).WithDetail("command", "npm run start")

	assert.Equal(t, "[PROCESS] exit 2", err.Error())
	assert.Equal(t, "npm run start", err.Details["command"])
}
