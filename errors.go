package pointcluster

import "errors"

var (
	// ErrInsufficientInput is returned when an algorithm has too few points
	// to do any work, e.g. a linkage run over fewer than two points.
	ErrInsufficientInput = errors.New("insufficient input")

	// ErrDivisionByZero is returned when a similarity metric is configured
	// with a zero scale.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidIndex is returned when a matrix cell, grid query or point
	// references an index outside the current point set.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrDimension is returned for points whose dimensionality does not match
	// the rest of the input, or whose coordinates are not finite.
	ErrDimension = errors.New("invalid dimension")

	// ErrInvalidScale is returned for negative or non-finite metric scales.
	ErrInvalidScale = errors.New("invalid scale")

	// ErrInvalidConfig is returned when a configuration struct fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)
