package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	base := NewError(LockError, CodePathAlreadyLocked, "Path '%s' is already locked", "a.txt")

	tests := []struct {
		name string
		err  error
		kind ErrorKind
		code string
	}{
		{"nil", nil, "", ""},
		{"classified", base, LockError, CodePathAlreadyLocked},
		{"wrapped with fmt", fmt.Errorf("lock failed: %w", base), LockError, CodePathAlreadyLocked},
		{"wrapped with WrapError", WrapError(base, "while committing"), LockError, CodePathAlreadyLocked},
		{"plain", errors.New("boom"), FailureError, ""},
		{"context", context.Canceled, CancelledError, CodeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(NotFoundError, CodeFSNotFound, "Path not found"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, &Error{Kind: NotFoundError, Code: CodeFSNotFound})
	assert.NotErrorIs(t, err, &Error{Kind: NotFoundError, Code: CodeWCPathNotFound})
	assert.NotErrorIs(t, err, ErrLock)
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("cause")
	assert.Equal(t, "msg", (&Error{Message: "msg"}).Error())
	assert.Equal(t, "cause", (&Error{Err: cause}).Error())
	assert.Equal(t, "msg: cause", (&Error{Message: "msg", Err: cause}).Error())
}

func TestCommitFailed(t *testing.T) {
	assert.NoError(t, CommitFailed(nil))

	err := CommitFailed(errors.New("disk full"))
	require.Error(t, err)
	assert.Equal(t, CodeCommitFailed, CodeOf(err))
	assert.Contains(t, err.Error(), "Commit failed (details follow)")

	err = CommitFailed(NewError(ValidationError, CodeTxnOutOfDate, "out of date"))
	assert.Equal(t, CodeTxnOutOfDate, CodeOf(err))
	assert.Equal(t, ValidationError, KindOf(err))
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, CheckCancelled(ctx))
	cancel()

	err := CheckCancelled(ctx)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsCancelled(nil))
	assert.False(t, IsCancelled(errors.New("other")))
}
