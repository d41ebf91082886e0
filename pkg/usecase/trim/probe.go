package trim

import (
	"math"
	"sync"

	"github.com/m-mizutani/veostudio/pkg/media"
)

// probeSeekTarget is far past any real duration; the element clamps it
// to the end of the source
const probeSeekTarget = 1e9

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// ProbeDuration obtains a trustworthy duration for a freshly loaded
// element. Some containers report an infinite, zero or NaN duration
// until the playhead has been forced against the end; in that case the
// probe seeks far past the end, reads the now-materialized duration
// (or, failing that, the clamped playhead position), and seeks back to
// zero before reporting. Call it once per source, on metadata
// availability.
func ProbeDuration(el media.Element, done func(duration float64)) {
	raw := el.Duration()
	if finitePositive(raw) {
		done(raw)
		return
	}

	var once sync.Once
	var remove func()
	remove = el.OnSeeked(func() {
		once.Do(func() {
			remove()
			d := el.Duration()
			if !finitePositive(d) {
				d = el.CurrentTime()
			}
			el.Seek(0)
			done(d)
		})
	})

	el.Seek(probeSeekTarget)
}
