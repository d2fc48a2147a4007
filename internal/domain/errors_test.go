package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadException_UnwrapAndIs(t *testing.T) {
	underlying := errors.New("unexpected end of JSON input")
	le := &LoadException{Raw: `{"a":`, Err: underlying}

	assert.ErrorIs(t, le, underlying)
	assert.Contains(t, le.Error(), underlying.Error())
}

func TestLoadException_NilSafe(t *testing.T) {
	var le *LoadException
	assert.Equal(t, "domain: load exception", le.Error())
	assert.Nil(t, le.Unwrap())
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	all := []error{
		ErrInvalidArgument,
		ErrCanceled,
		ErrDisposed,
		ErrLockTimeout,
		ErrLockLost,
		ErrMixedProviders,
		ErrSchemaVersionTooNew,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
