package trim

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/veostudio/pkg/media"
)

const (
	primeDelay    = 50 * time.Millisecond
	chunkInterval = 200 * time.Millisecond
	fallbackMIME  = "video/webm"
)

// mimeCandidates is tried in order of preference; the first type the
// factory supports wins. When none are supported the recorder is
// created without a type constraint.
var mimeCandidates = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
}

// SegmentRecorder re-encodes a window of an element by playing it back
// in real time and capturing the output stream.
type SegmentRecorder struct {
	el      media.Element
	factory media.RecorderFactory

	mu        sync.Mutex
	recording bool
}

func NewSegmentRecorder(el media.Element, factory media.RecorderFactory) *SegmentRecorder {
	return &SegmentRecorder{el: el, factory: factory}
}

// Recording reports whether a capture is in flight.
func (r *SegmentRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *SegmentRecorder) setRecording(v bool) {
	r.mu.Lock()
	r.recording = v
	r.mu.Unlock()
}

// Record plays back [start, end) and returns the captured clip. A nil
// clip with a nil error means the element offers no usable capture
// path; the caller keeps the source untouched. The duration of the
// result is governed by the wall clock, so this call blocks for
// roughly end-start seconds of playback.
func (r *SegmentRecorder) Record(ctx context.Context, start, end float64) (*media.Clip, error) {
	if end <= start {
		return nil, nil
	}
	if d := r.el.Duration(); finitePositive(d) && end > d {
		end = d
	}

	// Play briefly before capturing: an element that has never played
	// cannot hand out a capture stream.
	_ = r.el.Play()
	time.Sleep(primeDelay)
	r.el.Pause()

	capturer, ok := r.el.(media.Capturer)
	if !ok {
		return nil, nil
	}
	stream, err := capturer.CaptureStream()
	if err != nil {
		return nil, nil
	}

	var mimeType string
	for _, c := range mimeCandidates {
		if r.factory.IsTypeSupported(c) {
			mimeType = c
			break
		}
	}

	rec, err := r.factory.NewRecorder(stream, mimeType)
	if err != nil {
		return nil, nil
	}

	var chunkMu sync.Mutex
	var chunks [][]byte
	rec.OnData(func(chunk []byte) {
		chunkMu.Lock()
		chunks = append(chunks, chunk)
		chunkMu.Unlock()
	})

	var once sync.Once
	result := make(chan *media.Clip, 1)
	rec.OnStop(func() {
		once.Do(func() {
			r.setRecording(false)
			chunkMu.Lock()
			var data []byte
			for _, c := range chunks {
				data = append(data, c...)
			}
			chunkMu.Unlock()

			mt := rec.MIMEType()
			if mt == "" {
				mt = mimeType
			}
			if mt == "" {
				mt = fallbackMIME
			}
			result <- &media.Clip{Data: data, MIMEType: mt}
		})
	})
	rec.OnError(func(error) {
		once.Do(func() {
			r.setRecording(false)
			result <- nil
		})
	})

	var removeTick func()
	removeTick = r.el.OnTimeUpdate(func() {
		if r.el.CurrentTime() >= end {
			removeTick()
			rec.Stop()
			r.el.Pause()
		}
	})

	r.el.Seek(start)
	// discard anything the stream buffered before the window start
	stream.ReadChunk()
	r.setRecording(true)
	if err := rec.Start(chunkInterval); err != nil {
		// Some recorders reject a timeslice; retry with a single
		// final chunk on stop.
		if err := rec.Start(0); err != nil {
			removeTick()
			r.setRecording(false)
			return nil, nil
		}
	}
	if err := r.el.Play(); err != nil {
		removeTick()
		rec.Stop()
	}

	select {
	case clip := <-result:
		return clip, nil
	case <-ctx.Done():
		removeTick()
		r.setRecording(false)
		rec.Stop()
		r.el.Pause()
		return nil, ctx.Err()
	}
}
