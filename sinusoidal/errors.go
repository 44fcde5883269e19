package sinusoidal

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

var (
	// ErrInvalidArgument is returned for arguments outside the accepted domain
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidConfig is returned when a configuration value is rejected
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrOutOfOrder is returned when frames are not fed in temporal order
	ErrOutOfOrder = errors.New("frames out of order")

	// ErrInvariant marks an internal consistency fault
	ErrInvariant = errors.New("invariant violation")
)

// InvariantError describes a broken frame/peak invariant. It always indicates
// a bug in the tracker and aborts the run.
type InvariantError struct {
	FrameNumber int
	PartialID   int
	Reason      string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: frame %d, partial %d: %s", ErrInvariant, e.FrameNumber, e.PartialID, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// NewInvariantError returns an InvariantError carrying the caller's stack trace
func NewInvariantError(frameNumber, partialID int, reason string) error {
	return xerrors.New(&InvariantError{
		FrameNumber: frameNumber,
		PartialID:   partialID,
		Reason:      reason,
	})
}
