package ledger

import (
	"errors"
	"fmt"
)

// ErrHalt is the engine's one fail-fast signal. It marks a programming
// invariant violation, is raised only after the corresponding anomaly or
// error record has been emitted, and must be re-returned by every caller up
// to the process boundary. Nothing in this module recovers from it.
var ErrHalt = errors.New("halt: invariant violation")

// Haltf wraps ErrHalt with a formatted cause.
func Haltf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrHalt)...)
}

// IsHalt reports whether err carries the halt signal.
func IsHalt(err error) bool {
	return errors.Is(err, ErrHalt)
}
