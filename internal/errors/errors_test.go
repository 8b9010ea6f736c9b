package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkErrorMatching(t *testing.T) {
	err := Wrap(NewNetworkError("NSE API", 429, nil), "fetch NIFTY")

	assert.True(t, Is(err, ErrNetwork))
	assert.True(t, Is(err, ErrRateLimited))
	assert.False(t, Is(err, ErrNoData))
	assert.Equal(t, "fetch NIFTY: NSE API returned status code: 429", err.Error())

	var netErr *NetworkError
	assert.True(t, As(err, &netErr))
	assert.Equal(t, 429, netErr.StatusCode)
}

func TestNetworkErrorUnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewNetworkError("yahoo", 0, cause)

	assert.ErrorIs(t, err, cause)
	assert.False(t, Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNoDataAndValidation(t *testing.T) {
	assert.True(t, Is(NewNoDataError("yahoo", "^NSEI"), ErrNoData))
	assert.Equal(t, "no data returned from yahoo for ^NSEI", NewNoDataError("yahoo", "^NSEI").Error())

	v := NewValidationError("spotPrice", "abc", "must be a number")
	assert.True(t, Is(Wrapf(v, "arg %d", 1), ErrInputValidation))
	assert.Nil(t, Wrap(nil, "ignored"))
}
