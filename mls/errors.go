package mls

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument marks empty or mismatched inputs and out-of-range hyperparameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is returned when the feature width at predict time differs
	// from the width seen by fit. It is also an ErrInvalidArgument.
	ErrDimensionMismatch = errors.Wrap(ErrInvalidArgument, "feature dimension mismatch")

	// ErrNotFitted is returned by predict calls made before a successful fit.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrUnsupported marks options that are recognised but not implemented.
	ErrUnsupported = errors.New("unsupported configuration")
)

func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func dimensionMismatch(got, want int) error {
	return errors.Wrapf(ErrDimensionMismatch, "got %d features, trained on %d", got, want)
}
