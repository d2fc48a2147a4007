package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransient_IsRetryable(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := Transient(base)

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(base))
	assert.ErrorIs(t, wrapped, base)
}

func TestPanicError(t *testing.T) {
	err := PanicError{Value: "boom", StackTrace: "goroutine 1 [running]:"}
	assert.True(t, IsPanic(err))
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, IsPanic(errors.New("plain")))
}

func TestJobCancelled(t *testing.T) {
	err := JobCancelled{Reason: "template no longer exists"}
	assert.True(t, IsJobCancelled(err))
	assert.Contains(t, err.Error(), "template no longer exists")
	assert.False(t, IsJobCancelled(errors.New("plain")))
}
