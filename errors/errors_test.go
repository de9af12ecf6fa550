package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsObjectNotFound(t *testing.T) {
	err := NewObjectNotFoundError("foo", fmt.Errorf("bar"))
	require.True(t, IsObjectNotFound(err))
	require.True(t, IsUnretriable(err))
}

func TestUnretriable(t *testing.T) {
	err := Unretriable(fmt.Errorf("bar"))
	require.True(t, IsUnretriable(err))
	require.False(t, IsUnretriable(fmt.Errorf("bar")))
}

func TestAsKindExtractsKindFromWrappedErrors(t *testing.T) {
	err := NewKindError(KindInsufficientMaterial, "source too short")
	assert.Equal(t, KindInsufficientMaterial, AsKind(err))

	wrapped := fmt.Errorf("selecting clips: %w", err)
	assert.Equal(t, KindInsufficientMaterial, AsKind(wrapped))
}

func TestAsKindDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, AsKind(fmt.Errorf("something unexpected")))
}

func TestAsKindOfNilIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), AsKind(nil))
}

func TestKindErrorMessageIncludesKind(t *testing.T) {
	err := NewKindError(KindCancelled, "cancelled after probe")
	assert.Equal(t, "cancelled: cancelled after probe", err.Error())
}
