package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "order %s not found", "o1")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "order o1 not found", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStorage, cause, "load cart")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, "load cart: connection refused", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindInsufficientStock, "product p1 short")
	outer := fmt.Errorf("checkout: %w", inner)

	assert.Equal(t, KindInsufficientStock, KindOf(outer))
	assert.True(t, IsKind(outer, KindInsufficientStock))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(KindStorage, "tx begin")))
	assert.False(t, Retryable(New(KindValidation, "quantity must be positive")))
	assert.False(t, Retryable(errors.New("unknown")))
}
