package trim_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/veostudio/pkg/media"
	"github.com/m-mizutani/veostudio/pkg/usecase/trim"
)

func testSource(n int) []byte {
	return bytes.Repeat([]byte{0xAB}, n)
}

func TestProbeTrustedDuration(t *testing.T) {
	el := media.NewBytesElement(testSource(1000), "video/webm", media.WithDuration(10))
	el.Seek(1e9)
	el.Seek(3)

	var got float64
	calls := 0
	trim.ProbeDuration(el, func(d float64) {
		got = d
		calls++
	})

	gt.Equal(t, got, 10.0)
	gt.Equal(t, calls, 1)
	// the trusted path never moves the playhead
	gt.Equal(t, el.CurrentTime(), 3.0)
}

func TestProbeRevealsDurationBySeeking(t *testing.T) {
	el := media.NewBytesElement(testSource(1000), "video/webm", media.WithDuration(10))
	gt.True(t, math.IsNaN(el.Duration()))

	var got float64
	calls := 0
	trim.ProbeDuration(el, func(d float64) {
		got = d
		calls++
	})

	gt.Equal(t, got, 10.0)
	gt.Equal(t, calls, 1)
	gt.Equal(t, el.CurrentTime(), 0.0)

	// the probe handler must not survive past its single shot
	el.Seek(5)
	gt.Equal(t, calls, 1)
}

// opaqueElement never reports a duration, even after seeking; the probe
// has to fall back to the clamped playhead position.
type opaqueElement struct {
	length float64
	cur    float64
	seeked []func()
}

func (e *opaqueElement) Load() error          { return nil }
func (e *opaqueElement) Play() error          { return nil }
func (e *opaqueElement) Pause()               {}
func (e *opaqueElement) CurrentTime() float64 { return e.cur }
func (e *opaqueElement) Duration() float64    { return math.NaN() }

func (e *opaqueElement) Seek(seconds float64) {
	if seconds > e.length {
		seconds = e.length
	}
	if seconds < 0 {
		seconds = 0
	}
	e.cur = seconds
	for _, fn := range e.seeked {
		fn()
	}
}

func (e *opaqueElement) OnMetadata(func()) func()   { return func() {} }
func (e *opaqueElement) OnTimeUpdate(func()) func() { return func() {} }

func (e *opaqueElement) OnSeeked(fn func()) func() {
	e.seeked = append(e.seeked, fn)
	return func() {
		e.seeked = nil
	}
}

func TestProbeFallsBackToPlayheadPosition(t *testing.T) {
	el := &opaqueElement{length: 7.5}

	var got float64
	trim.ProbeDuration(el, func(d float64) {
		got = d
	})

	gt.Equal(t, got, 7.5)
	gt.Equal(t, el.CurrentTime(), 0.0)
}
