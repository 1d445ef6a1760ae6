package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := NotFound("get task", "task %d not found", 7)
	wrapped := fmt.Errorf("complete: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrExpired))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "get task: task 7 not found", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("FOREIGN KEY constraint failed")
	err := Wrap(KindValidationFailed, "create task", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "FOREIGN KEY")
}

func TestUserMessage(t *testing.T) {
	expired := New(KindExpired, OpConfirm, "action expired")
	assert.Equal(t, "This request is no longer available, please try again.", UserMessage(expired))

	assert.Equal(t, "Something went wrong, please try again.", UserMessage(errors.New("disk full")))

	invalid := InvalidArguments("execute create_task", "missing required parameter %q", "title")
	assert.Equal(t, invalid.Error(), UserMessage(invalid))
}
