package contextutils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorPreservesCode(t *testing.T) {
	err := WrapErrorf(ErrInsufficientQuestions, "%d/%d eligible questions", 39, 40)

	assert.Equal(t, ErrorCodeInsufficientQuestions, GetErrorCode(err))
	assert.Contains(t, err.Error(), "39/40")
}

func TestIsError_MatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrInsufficientQuestions, "pool too small")

	assert.True(t, IsError(wrapped, ErrInsufficientQuestions))
	assert.False(t, IsError(wrapped, ErrAttemptNotFound))
	assert.False(t, IsError(errors.New("plain"), ErrInsufficientQuestions))
}

func TestAsError(t *testing.T) {
	var appErr *AppError
	require.True(t, AsError(ErrQuizNotAvailable, &appErr))
	assert.Equal(t, ErrorCodeQuizNotAvailable, appErr.Code)

	appErr = nil
	assert.False(t, AsError(errors.New("plain"), &appErr))
	assert.Nil(t, appErr)
}

func TestUserIDContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Zero(t, GetUserIDFromContext(ctx))

	ctx = WithUserID(ctx, 42)
	assert.Equal(t, 42, GetUserIDFromContext(ctx))
}
