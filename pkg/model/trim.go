package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidTrimRange = goerr.New("invalid trim range")

// TrimRange is a proposed [Start, End] sub-range of a video, in seconds.
type TrimRange struct {
	Start float64
	End   float64
}

// Validate checks 0 <= Start <= End <= duration
func (r TrimRange) Validate(duration float64) error {
	if r.Start < 0 || r.End < r.Start || r.End > duration {
		return goerr.Wrap(ErrInvalidTrimRange, "out of bounds",
			goerr.V("start", r.Start), goerr.V("end", r.End), goerr.V("duration", duration))
	}
	return nil
}

// Clamp bounds the range to [0, duration], preserving Start <= End.
func (r TrimRange) Clamp(duration float64) TrimRange {
	c := r
	if c.Start < 0 {
		c.Start = 0
	}
	if c.End > duration {
		c.End = duration
	}
	if c.End < c.Start {
		c.End = c.Start
	}
	return c
}

// Span returns the length of the range in seconds.
func (r TrimRange) Span() float64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}
