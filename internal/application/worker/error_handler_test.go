package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezkam/jobmongo/internal/domain"
)

func TestDefaultErrorHandler_HandleError_NoOverride(t *testing.T) {
	h := &DefaultErrorHandler{}
	job := domain.Job{ID: "job-1"}

	result := h.HandleError(context.Background(), job, 2, Transient(errors.New("boom")))
	assert.Nil(t, result)
}

func TestDefaultErrorHandler_HandlePanic_NoOverride(t *testing.T) {
	h := &DefaultErrorHandler{}
	job := domain.Job{ID: "job-1"}

	result := h.HandlePanic(context.Background(), job, "panic value", "stack")
	assert.Nil(t, result)
}

func TestDerefQueue(t *testing.T) {
	assert.Equal(t, "", derefQueue(nil))
	q := "default"
	assert.Equal(t, "default", derefQueue(&q))
}
