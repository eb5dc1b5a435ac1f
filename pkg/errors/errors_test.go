package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrRecordNotFound, "no fee record for student s-1")

	assert.True(t, stdErrors.Is(err, ErrRecordNotFound))
	assert.False(t, stdErrors.Is(err, ErrInvalidAmount))
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "no fee record for student s-1", err.Message)
}

func TestPersistenceWrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Persistence(cause, "")

	assert.True(t, stdErrors.Is(err, ErrPersistenceFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("outer: %w", ErrInvalidAmount)
	assert.Equal(t, ErrInvalidAmount.Code, FromError(wrapped).Code)
}
