package trim

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/media"
	"github.com/m-mizutani/veostudio/pkg/model"
)

var ErrNotLoaded = goerr.New("no media loaded")

// Controller manages a proposed trim window over a single element and
// turns committed windows into real clips. The proposed range can be
// adjusted freely; only Commit changes what the viewer experiences.
// After a commit, playback time is expressed relative to the committed
// window and playback loops inside it.
type Controller struct {
	el  media.Element
	rec *SegmentRecorder

	mu         sync.Mutex
	duration   float64
	trimRange  model.TrimRange
	trimmed    bool
	committing bool
	winStart   float64
	winSpan    float64
	played     float64
	attached   bool
}

func NewController(el media.Element, factory media.RecorderFactory) *Controller {
	return &Controller{
		el:  el,
		rec: NewSegmentRecorder(el, factory),
	}
}

// Load resets all trim state and loads the element, probing its
// duration as soon as metadata is available.
func (c *Controller) Load() error {
	c.mu.Lock()
	c.duration = 0
	c.trimRange = model.TrimRange{}
	c.trimmed = false
	c.committing = false
	c.winStart = 0
	c.winSpan = 0
	c.played = 0
	attach := !c.attached
	c.attached = true
	c.mu.Unlock()

	if attach {
		c.el.OnMetadata(func() {
			ProbeDuration(c.el, c.onDuration)
		})
		c.el.OnTimeUpdate(c.onTimeUpdate)
	}
	return c.el.Load()
}

func (c *Controller) onDuration(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = d
	c.trimRange = model.TrimRange{Start: 0, End: d}
	c.winStart = 0
	c.winSpan = d
}

func (c *Controller) onTimeUpdate() {
	cur := c.el.CurrentTime()

	c.mu.Lock()
	base, span := c.windowLocked()
	if span > 0 {
		frac := (cur - base) / span
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		c.played = frac
	}
	loopTo := -1.0
	if span > 0 && cur >= base+span && !c.committing && !c.rec.Recording() {
		loopTo = base
		c.played = 0
	}
	c.mu.Unlock()

	if loopTo >= 0 {
		c.el.Seek(loopTo)
		_ = c.el.Play()
	}
}

func (c *Controller) windowLocked() (base, span float64) {
	if c.trimmed {
		return c.winStart, c.winSpan
	}
	return 0, c.duration
}

// SetRange updates the proposed trim window, clamped to the known
// duration. It has no effect on playback until Commit.
func (c *Controller) SetRange(r model.TrimRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duration <= 0 {
		return goerr.Wrap(ErrNotLoaded, "cannot set trim range")
	}
	c.trimRange = r.Clamp(c.duration)
	return nil
}

// Range returns the current proposed trim window.
func (c *Controller) Range() model.TrimRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trimRange
}

// IsTrimmed reports whether a window has been committed.
func (c *Controller) IsTrimmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trimmed
}

// Duration returns the probed duration of the source.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Window returns the start and span of the active playback window: the
// committed window after a commit, otherwise the full source.
func (c *Controller) Window() (start, span float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowLocked()
}

// Played returns playback progress through the active window as a
// fraction in [0, 1].
func (c *Controller) Played() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.played
}

// Elapsed returns the window-relative playback position in seconds.
func (c *Controller) Elapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, span := c.windowLocked()
	return c.played * span
}

// Commit freezes the proposed range as the effective window, moves the
// playhead to its start and records the window into a standalone clip.
// The committed window stays in force even if recording yields no
// clip. Blocks for roughly the span of the window.
func (c *Controller) Commit(ctx context.Context) (*media.Clip, error) {
	c.mu.Lock()
	if c.duration <= 0 {
		c.mu.Unlock()
		return nil, goerr.Wrap(ErrNotLoaded, "cannot commit trim")
	}
	start := c.trimRange.Start
	end := c.trimRange.End
	c.trimmed = true
	c.winStart = start
	c.winSpan = end - start
	if c.winSpan < 0 {
		c.winSpan = 0
	}
	c.played = 0
	c.committing = true
	c.mu.Unlock()

	c.el.Pause()
	c.el.Seek(start)

	clip, err := c.rec.Record(ctx, start, end)

	c.mu.Lock()
	c.committing = false
	c.mu.Unlock()

	return clip, err
}

// Reset discards any committed window and restores the full source as
// the active window.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.trimmed = false
	c.trimRange = model.TrimRange{Start: 0, End: c.duration}
	c.winStart = 0
	c.winSpan = c.duration
	c.played = 0
	c.mu.Unlock()

	c.el.Seek(0)
}

// FormatTime renders seconds as m:ss, or h:mm:ss for sources an hour
// or longer.
func FormatTime(seconds float64) string {
	if seconds <= 0 || !finitePositive(seconds) {
		return "0:00"
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
