package piconvert

import (
	"errors"
	"fmt"
	"os"
)

// PreconditionError reports a condition that prevents a run from starting:
// the rendering engine is missing, or the source path does not exist.
type PreconditionError struct {
	Reason string
	Hint   string // optional remediation, e.g. install instructions
}

func (e *PreconditionError) Error() string {
	if e.Hint == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s (%s)", e.Reason, e.Hint)
}

// IsPrecondition reports whether err is or wraps a *PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// CheckSource returns a *PreconditionError when path does not exist.
// [Converter.Run] itself treats a missing source as an empty run; callers
// that want to reject it check first.
func CheckSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PreconditionError{
				Reason: fmt.Sprintf("source %q does not exist", path),
				Hint:   "pass an existing file or directory",
			}
		}
		return &PreconditionError{Reason: fmt.Sprintf("source %q: %v", path, err)}
	}
	return nil
}
