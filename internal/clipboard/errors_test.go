package clipboard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeNotFound, "gone")

	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeStorage))
	assert.False(t, IsCode(nil, ErrCodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
}

func TestIsCodeMatchesWrappedError(t *testing.T) {
	inner := WrapError(ErrCodeStorage, "write failed", errors.New("disk full"))
	outer := fmt.Errorf("during cleanup: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeStorage))
	assert.False(t, IsCode(outer, ErrCodeNotFound))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(ErrCodeStorage, "write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STORAGE_ERROR")
	assert.Contains(t, err.Error(), "disk full")
}
