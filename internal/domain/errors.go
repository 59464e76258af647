package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	// ErrConsistencyViolation marks row-count mismatches and impossible states.
	// The unit of work is aborted and the run is not retried.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrPreconditionFailed marks a rejected operator action.
	ErrPreconditionFailed         = errors.New("precondition failed")
	ErrUnsupportedPurchaseContext = errors.New("unsupported purchase context")
)

func ConsistencyViolation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConsistencyViolation)
}

func PreconditionFailed(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrPreconditionFailed)
}

// ExpectRows fails with a consistency violation unless got == want.
func ExpectRows(what string, want, got int64) error {
	if got != want {
		return ConsistencyViolation("expected exactly %d updated %s, got %d", want, what, got)
	}
	return nil
}
