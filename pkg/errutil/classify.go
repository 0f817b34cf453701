package errutil

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// Fatal marks a job error as permanent: the queue must not retry it.
// Missing rows and malformed payloads fall in this class. Anything not
// wrapped by Fatal is treated as transient and retried with backoff.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
}

func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsFatal reports whether err was marked permanent via Fatal.
func IsFatal(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
