package generate

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/adapter"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/repository"
	"github.com/m-mizutani/veostudio/pkg/utils/logging"
)

// DefaultPollInterval is the fixed delay between operation status checks
const DefaultPollInterval = 5000 * time.Millisecond

var ErrOperationActive = goerr.New("a generation operation is already active")

// Poller drives one outstanding video generation job from submission to
// terminal state. At most one operation handle is active at a time; the
// epoch counter makes a poll that was in flight when the handle was
// cleared unable to touch the history store.
type Poller struct {
	store     repository.HistoryStore
	client    adapter.GenAI
	artifacts adapter.Storage
	interval  time.Duration

	mu     sync.Mutex
	active *model.OperationHandle
	epoch  uint64
	doneCh chan struct{}
}

type PollerOption func(*Poller)

// WithInterval overrides the poll interval
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// NewPoller creates a poller bound to a history store, a generation
// client and an artifact store
func NewPoller(store repository.HistoryStore, client adapter.GenAI, artifacts adapter.Storage, opts ...PollerOption) *Poller {
	p := &Poller{
		store:     store,
		client:    client,
		artifacts: artifacts,
		interval:  DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Active returns the current operation handle, or nil
func (p *Poller) Active() *model.OperationHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	cp := *p.active
	return &cp
}

// Start begins polling the given operation. It fails if another
// operation is already active.
func (p *Poller) Start(ctx context.Context, handle model.OperationHandle) error {
	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return goerr.Wrap(ErrOperationActive, "cannot start",
			goerr.V("active", p.active.Name), goerr.V("requested", handle.Name))
	}
	p.epoch++
	epoch := p.epoch
	p.active = &handle
	p.doneCh = make(chan struct{})
	done := p.doneCh
	p.mu.Unlock()

	go p.loop(ctx, epoch, handle, done)
	return nil
}

// Stop clears the active operation handle. Closing the done channel
// wakes the loop goroutine so a scheduled poll is dropped without
// waiting out the timer. An in-flight status request is not aborted;
// the epoch guard makes its completion a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return
	}
	p.active = nil
	p.epoch++
	close(p.doneCh)
	p.doneCh = nil
}

// Wait blocks until the current operation reaches a terminal state or
// the context is cancelled. It returns immediately when no operation is
// active.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	ch := p.doneCh
	p.mu.Unlock()
	if ch == nil {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) currentEpoch(epoch uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.epoch == epoch
}

func (p *Poller) loop(ctx context.Context, epoch uint64, handle model.OperationHandle, done <-chan struct{}) {
	logger := logging.From(ctx)
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.abandon(epoch)
			return
		case <-done:
			return
		case <-timer.C:
		}

		if !p.currentEpoch(epoch) {
			return
		}

		raw, err := p.client.PollOperation(ctx, handle.Name)
		if err != nil {
			// A failed status check is not job failure; keep polling.
			logger.Warn("operation status check failed", "name", handle.Name, "error", err)
			timer.Reset(p.interval)
			continue
		}

		outcome := InterpretOperation(raw)
		if !outcome.IsTerminal() {
			timer.Reset(p.interval)
			continue
		}

		p.finish(ctx, epoch, handle, outcome)
		return
	}
}

// abandon clears the handle without touching the history store, used
// when the surrounding context is cancelled mid-operation.
func (p *Poller) abandon(epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil || p.epoch != epoch {
		return
	}
	p.active = nil
	close(p.doneCh)
	p.doneCh = nil
}

func (p *Poller) finish(ctx context.Context, epoch uint64, handle model.OperationHandle, outcome Outcome) {
	logger := logging.From(ctx)

	var patch repository.Patch
	switch outcome.Kind {
	case OutcomeReady:
		location, err := p.fetchArtifact(ctx, handle, outcome.VideoURI)
		if err != nil {
			logger.Warn("artifact fetch failed", "name", handle.Name, "error", err)
			patch = errorPatch("Failed to download generated video: " + err.Error())
		} else {
			kind := model.KindVideo
			loading := false
			content := ""
			patch = repository.Patch{
				Kind:      &kind,
				MediaURL:  &location,
				IsLoading: &loading,
				Content:   &content,
			}
		}
	default:
		patch = errorPatch(outcome.Message)
	}

	// The handle check and the store mutation happen under one lock so
	// that Stop cannot interleave between the epoch test and the update.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil || p.epoch != epoch {
		return
	}

	if err := p.store.Update(handle.ItemID, patch); err != nil {
		logger.Error("failed to update history item", "id", handle.ItemID, "error", err)
	}

	p.active = nil
	close(p.doneCh)
	p.doneCh = nil
}

func (p *Poller) fetchArtifact(ctx context.Context, handle model.OperationHandle, uri string) (string, error) {
	data, err := p.client.DownloadFile(ctx, uri)
	if err != nil {
		return "", err
	}

	key := "videos/" + string(handle.ItemID) + ".mp4"
	location, err := adapter.SaveArtifact(ctx, p.artifacts, key, data)
	if err != nil {
		return "", err
	}
	return location, nil
}

func errorPatch(msg string) repository.Patch {
	kind := model.KindError
	loading := false
	return repository.Patch{
		Kind:      &kind,
		Content:   &msg,
		IsLoading: &loading,
	}
}
