package fetch

import "errors"

var (
	// ErrInvalidRange reports a range whose start is after its end, or a
	// date that does not parse.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrRangeTooLarge reports a range spanning more days than the
	// configured maximum.
	ErrRangeTooLarge = errors.New("date range too large")
)
