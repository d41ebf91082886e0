package media

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultTick = 100 * time.Millisecond

	// nominalBitrate is used to estimate playable length when the
	// container declares no duration
	nominalBitrate = 1_000_000
)

// FileElement plays a local media buffer in real time on an internal
// clock. It implements Element and Capturer. MP4 sources report their
// duration from the container header; anything else behaves like a
// streaming source: Duration is NaN until a seek forces the element to
// materialize it.
type FileElement struct {
	mu   sync.Mutex
	data []byte
	mime string

	length   float64 // playable length, always known internally
	reported bool    // whether Duration() reveals it
	cur      float64
	playing  bool
	primed   bool
	stopCh   chan struct{}

	tick time.Duration
	rate float64

	nextID      int
	metadataFns map[int]func()
	timeFns     map[int]func()
	seekedFns   map[int]func()
}

type FileElementOption func(*FileElement)

// WithTick overrides the time-update granularity
func WithTick(d time.Duration) FileElementOption {
	return func(e *FileElement) {
		e.tick = d
	}
}

// WithRate scales the playback clock; rates above 1 play faster than
// real time
func WithRate(rate float64) FileElementOption {
	return func(e *FileElement) {
		e.rate = rate
	}
}

// WithDuration sets the playable length explicitly
func WithDuration(seconds float64) FileElementOption {
	return func(e *FileElement) {
		e.length = seconds
	}
}

// WithUnreportedDuration makes the element withhold its duration until
// a seek clamps against the end, the way streaming containers do
func WithUnreportedDuration() FileElementOption {
	return func(e *FileElement) {
		e.reported = false
	}
}

// NewFileElement loads a local file as a playable element
func NewFileElement(path string, opts ...FileElementOption) (*FileElement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read media file", goerr.V("path", path))
	}

	mime := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		mime = "video/mp4"
	case ".webm":
		mime = "video/webm"
	}

	return NewBytesElement(data, mime, opts...), nil
}

// NewBytesElement wraps an in-memory buffer as a playable element
func NewBytesElement(data []byte, mime string, opts ...FileElementOption) *FileElement {
	e := &FileElement{
		data:        data,
		mime:        mime,
		tick:        defaultTick,
		rate:        1.0,
		metadataFns: make(map[int]func()),
		timeFns:     make(map[int]func()),
		seekedFns:   make(map[int]func()),
	}

	if d, ok := probeMP4Duration(data); ok {
		e.length = d
		e.reported = true
	} else {
		e.length = float64(len(data)*8) / nominalBitrate
		e.reported = false
	}
	if e.length <= 0 {
		e.length = 1
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MIMEType returns the source container type
func (e *FileElement) MIMEType() string {
	return e.mime
}

func (e *FileElement) Load() error {
	e.mu.Lock()
	e.cur = 0
	e.playing = false
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	fns := snapshot(e.metadataFns)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (e *FileElement) Play() error {
	e.mu.Lock()
	if e.playing {
		e.mu.Unlock()
		return nil
	}
	e.playing = true
	e.primed = true
	stop := make(chan struct{})
	e.stopCh = stop
	e.mu.Unlock()

	go e.run(stop)
	return nil
}

func (e *FileElement) run(stop chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if !e.playing {
			e.mu.Unlock()
			return
		}
		e.cur += e.tick.Seconds() * e.rate
		ended := false
		if e.cur >= e.length {
			e.cur = e.length
			e.playing = false
			ended = true
		}
		fns := snapshot(e.timeFns)
		e.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
		if ended {
			return
		}
	}
}

func (e *FileElement) Pause() {
	e.mu.Lock()
	e.playing = false
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.mu.Unlock()
}

// Seek clamps to the playable range. Clamping against the end reveals
// the true duration, which is what the duration probe relies on.
func (e *FileElement) Seek(seconds float64) {
	e.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > e.length {
		seconds = e.length
		e.reported = true
	}
	e.cur = seconds
	fns := snapshot(e.seekedFns)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *FileElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur
}

func (e *FileElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reported {
		return math.NaN()
	}
	return e.length
}

// Playing reports whether the clock is advancing
func (e *FileElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *FileElement) OnMetadata(fn func()) func() {
	return e.register(e.metadataFns, fn)
}

func (e *FileElement) OnTimeUpdate(fn func()) func() {
	return e.register(e.timeFns, fn)
}

func (e *FileElement) OnSeeked(fn func()) func() {
	return e.register(e.seekedFns, fn)
}

func (e *FileElement) register(m map[int]func(), fn func()) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	m[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(m, id)
		e.mu.Unlock()
	}
}

func snapshot(m map[int]func()) []func() {
	fns := make([]func(), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

// CaptureStream yields a live stream of the element's output. The
// element must have played at least momentarily first; the pipeline
// exposes nothing before playback has started.
func (e *FileElement) CaptureStream() (Stream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.primed {
		return nil, goerr.New("capture stream unavailable before playback")
	}
	return &fileStream{el: e, lastFrac: e.cur / e.length}, nil
}

// fileStream maps elapsed playback onto proportional byte ranges of
// the source buffer
type fileStream struct {
	mu       sync.Mutex
	el       *FileElement
	lastFrac float64
}

func (s *fileStream) ReadChunk() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.el.mu.Lock()
	frac := s.el.cur / s.el.length
	size := len(s.el.data)
	data := s.el.data
	s.el.mu.Unlock()

	if frac > 1 {
		frac = 1
	}
	if frac <= s.lastFrac {
		// backwards seek: restart accumulation at the new position
		s.lastFrac = frac
		return nil
	}

	start := int(s.lastFrac * float64(size))
	end := int(frac * float64(size))
	s.lastFrac = frac
	if start < 0 || end > size || start >= end {
		return nil
	}
	return data[start:end]
}

// FileRecorderFactory negotiates encodings for file-backed streams.
type FileRecorderFactory struct {
	supported []string
}

// NewFileRecorderFactory creates a factory advertising the given
// encodings; with none given it supports vp8 webm and plain webm.
func NewFileRecorderFactory(supported ...string) *FileRecorderFactory {
	if len(supported) == 0 {
		supported = []string{"video/webm;codecs=vp8,opus", "video/webm"}
	}
	return &FileRecorderFactory{supported: supported}
}

func (f *FileRecorderFactory) IsTypeSupported(mimeType string) bool {
	for _, s := range f.supported {
		if s == mimeType {
			return true
		}
	}
	return false
}

func (f *FileRecorderFactory) NewRecorder(stream Stream, mimeType string) (Recorder, error) {
	if stream == nil {
		return nil, goerr.New("capture stream is required")
	}
	if mimeType == "" {
		mimeType = "video/webm"
	}
	return &fileRecorder{stream: stream, mime: mimeType}, nil
}

// fileRecorder pulls chunks from a capture stream on a timeslice
type fileRecorder struct {
	stream Stream
	mime   string

	mu        sync.Mutex
	recording bool
	stopCh    chan struct{}
	dataFn    func([]byte)
	stopFn    func()
	errFn     func(error)
}

func (r *fileRecorder) MIMEType() string { return r.mime }

func (r *fileRecorder) OnData(fn func(chunk []byte)) {
	r.mu.Lock()
	r.dataFn = fn
	r.mu.Unlock()
}

func (r *fileRecorder) OnStop(fn func()) {
	r.mu.Lock()
	r.stopFn = fn
	r.mu.Unlock()
}

func (r *fileRecorder) OnError(fn func(err error)) {
	r.mu.Lock()
	r.errFn = fn
	r.mu.Unlock()
}

func (r *fileRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return goerr.New("recorder already started")
	}
	r.recording = true
	stop := make(chan struct{})
	r.stopCh = stop
	r.mu.Unlock()

	if timeslice > 0 {
		go r.pump(stop, timeslice)
	}
	return nil
}

func (r *fileRecorder) pump(stop chan struct{}, timeslice time.Duration) {
	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.emit(r.stream.ReadChunk())
		}
	}
}

func (r *fileRecorder) emit(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	r.mu.Lock()
	fn := r.dataFn
	r.mu.Unlock()
	if fn != nil {
		fn(chunk)
	}
}

func (r *fileRecorder) Stop() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	close(r.stopCh)
	r.stopCh = nil
	stopFn := r.stopFn
	r.mu.Unlock()

	// flush whatever the stream produced since the last timeslice
	r.emit(r.stream.ReadChunk())
	if stopFn != nil {
		stopFn()
	}
}
