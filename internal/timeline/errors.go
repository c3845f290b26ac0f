package timeline

import "errors"

var (
	// ErrOverlap means a placement, move or trim would make two clips on the
	// same track share composition time.
	ErrOverlap = errors.New("clips would overlap")

	// ErrInvalidTrim means a trim boundary violates the source bounds or the
	// minimum clip duration.
	ErrInvalidTrim = errors.New("invalid trim boundary")

	// ErrNotWithinClip means a split point is not strictly inside the clip span.
	ErrNotWithinClip = errors.New("time not within clip")

	ErrUnknownClip   = errors.New("unknown clip")
	ErrUnknownSource = errors.New("unknown source")
)
