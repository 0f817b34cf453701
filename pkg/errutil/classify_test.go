package errutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalMarksPermanent(t *testing.T) {
	base := errors.New("row is gone")

	err := Fatal(base)
	require.True(t, IsFatal(err))
	require.ErrorIs(t, err, base)

	// wrapping keeps the classification
	wrapped := fmt.Errorf("handler: %w", err)
	require.True(t, IsFatal(wrapped))
}

func TestFatalNil(t *testing.T) {
	require.NoError(t, Fatal(nil))
}

func TestFatalf(t *testing.T) {
	base := errors.New("boom")
	err := Fatalf("load customer: %w", base)
	require.True(t, IsFatal(err))
	require.ErrorIs(t, err, base)
}

func TestPlainErrorsAreRetryable(t *testing.T) {
	require.False(t, IsFatal(errors.New("connection refused")))
	require.False(t, IsFatal(NotFound("campaign not found")))
}

func TestBaseErrorCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound("campaign not found"))

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusNotFound, be.Code)
	require.Equal(t, 404, be.Code.HTTPStatus())
}
