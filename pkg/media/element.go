package media

import "time"

// Clip is an assembled export artifact
type Clip struct {
	Data     []byte
	MIMEType string
}

// Element is a playback surface for one loaded media source. Times are
// in seconds. Duration may report NaN, +Inf or 0 until the source has
// been probed; callers must not trust it before then.
//
// Callbacks are invoked either on the caller's goroutine (Load, Seek)
// or on the element's playback goroutine (time updates); handlers must
// do their own locking.
type Element interface {
	// Load (re)initializes the element and fires metadata callbacks
	Load() error
	Play() error
	Pause()
	// Seek moves the playhead, clamping to the playable range, and
	// fires seeked callbacks
	Seek(seconds float64)
	CurrentTime() float64
	Duration() float64

	// OnMetadata registers a callback for metadata availability; the
	// returned function removes it
	OnMetadata(fn func()) (remove func())
	// OnTimeUpdate registers a callback fired on playback progress
	OnTimeUpdate(fn func()) (remove func())
	// OnSeeked registers a callback fired when a seek completes
	OnSeeked(fn func()) (remove func())
}

// Stream is a live, real-time readable representation of a playing
// element's output. It is the only capture mechanism available; there
// is no random-access re-encode path.
type Stream interface {
	// ReadChunk returns the data produced since the previous call
	ReadChunk() []byte
}

// Capturer is the optional capture capability of an element. Elements
// that cannot yield a live stream simply fail here; callers treat that
// as "no output", not as a fault.
type Capturer interface {
	CaptureStream() (Stream, error)
}

// Recorder consumes a capture stream and assembles output chunks
type Recorder interface {
	// Start begins recording. A positive timeslice requests periodic
	// data callbacks; zero delivers a single chunk on Stop.
	Start(timeslice time.Duration) error
	Stop()
	// MIMEType returns the negotiated encoding
	MIMEType() string

	OnData(fn func(chunk []byte))
	OnStop(fn func())
	OnError(fn func(err error))
}

// RecorderFactory is the platform capability query for encodings.
type RecorderFactory interface {
	// IsTypeSupported reports whether the encoding can be recorded
	IsTypeSupported(mimeType string) bool
	// NewRecorder opens a recorder over the stream. An empty mimeType
	// requests the platform default.
	NewRecorder(stream Stream, mimeType string) (Recorder, error)
}
