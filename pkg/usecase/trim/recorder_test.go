package trim_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/veostudio/pkg/media"
	"github.com/m-mizutani/veostudio/pkg/usecase/trim"
)

// fastElement plays a 10 second, 1000 byte source at 100x so recording
// tests finish in tens of milliseconds.
func fastElement() *media.FileElement {
	return media.NewBytesElement(testSource(1000), "video/webm",
		media.WithDuration(10),
		media.WithTick(5*time.Millisecond),
		media.WithRate(100))
}

func TestRecordSegment(t *testing.T) {
	el := fastElement()
	rec := trim.NewSegmentRecorder(el, media.NewFileRecorderFactory())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clip, err := rec.Record(ctx, 2, 5)
	gt.NoError(t, err)
	gt.V(t, clip).NotNil()

	// 3 seconds of a 10 second, 1000 byte source
	gt.A(t, clip.Data).Length(300)
	gt.Equal(t, clip.MIMEType, "video/webm;codecs=vp8,opus")
	gt.False(t, rec.Recording())
}

func TestRecordNegotiatesDownToPlainWebM(t *testing.T) {
	el := fastElement()
	factory := media.NewFileRecorderFactory("video/webm")
	rec := trim.NewSegmentRecorder(el, factory)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clip, err := rec.Record(ctx, 0, 1)
	gt.NoError(t, err)
	gt.V(t, clip).NotNil()
	gt.Equal(t, clip.MIMEType, "video/webm")
}

func TestRecordClampsWindowToDuration(t *testing.T) {
	el := fastElement()
	el.Seek(1e9)
	el.Seek(0)
	rec := trim.NewSegmentRecorder(el, media.NewFileRecorderFactory())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clip, err := rec.Record(ctx, 8, 20)
	gt.NoError(t, err)
	gt.V(t, clip).NotNil()
	gt.A(t, clip.Data).Length(200)
}

func TestRecordEmptyWindow(t *testing.T) {
	rec := trim.NewSegmentRecorder(fastElement(), media.NewFileRecorderFactory())

	clip, err := rec.Record(context.Background(), 5, 5)
	gt.NoError(t, err)
	gt.Nil(t, clip)
}

// noCapture hides the element's capture capability
type noCapture struct {
	media.Element
}

func TestRecordWithoutCaptureSupport(t *testing.T) {
	el := &noCapture{Element: fastElement()}
	rec := trim.NewSegmentRecorder(el, media.NewFileRecorderFactory())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	clip, err := rec.Record(ctx, 2, 5)
	gt.NoError(t, err)
	gt.Nil(t, clip)
}

func TestRecordCancelled(t *testing.T) {
	// real-time playback, so the window cannot finish within the deadline
	el := media.NewBytesElement(testSource(1000), "video/webm",
		media.WithDuration(10),
		media.WithTick(5*time.Millisecond))
	rec := trim.NewSegmentRecorder(el, media.NewFileRecorderFactory())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	clip, err := rec.Record(ctx, 0, 8)
	gt.Error(t, err)
	gt.Nil(t, clip)
	gt.False(t, rec.Recording())
}
