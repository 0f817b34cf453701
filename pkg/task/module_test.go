package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialRetryDelay(t *testing.T) {
	delay := ExponentialRetryDelay(time.Minute)
	err := errors.New("transient")

	require.Equal(t, time.Minute, delay(1, err, nil))
	require.Equal(t, 2*time.Minute, delay(2, err, nil))
	require.Equal(t, 4*time.Minute, delay(3, err, nil))
	require.Equal(t, 8*time.Minute, delay(4, err, nil))
}

func TestExponentialRetryDelayCustomBase(t *testing.T) {
	delay := ExponentialRetryDelay(5 * time.Second)

	require.Equal(t, 5*time.Second, delay(1, nil, nil))
	require.Equal(t, 20*time.Second, delay(3, nil, nil))
}
