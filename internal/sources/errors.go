package sources

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a source that cannot currently be listed or fetched
// from. A check cycle treats a source returning this as listing nothing.
var ErrUnavailable = errors.New("source unavailable")

// Unavailable wraps err as an ErrUnavailable for the named source.
func Unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
}

// IsUnavailable reports whether err marks a source as unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
