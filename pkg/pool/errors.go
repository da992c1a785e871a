package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTask resolves the future of a result-bearing submission whose
	// callable was nil.
	ErrNilTask = errors.New("pool: task is nil")
)

// PanicError wraps a panic recovered from a task body, together with the
// stack captured at the recovery point. Result-bearing submissions surface it
// through their Future; detached submissions only count it.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pool: task panicked: %v", e.Value)
}

func errInvalidConfig(msg string) error {
	return fmt.Errorf("pool: invalid config: %s", msg)
}
