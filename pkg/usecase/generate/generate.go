package generate

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/adapter"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/repository"
)

const loadingVideoMessage = "Generating video..."

const (
	maxVideoReferenceImages = 3
	maxImageReferenceImages = 6
)

var ErrGenerationInFlight = goerr.New("another generation is in flight")

// Service orchestrates generation jobs against the history store. A new
// request may not start while a previous one is unfinished; that is an
// enforced invariant, not a UI convention.
type Service struct {
	store     repository.HistoryStore
	client    adapter.GenAI
	artifacts adapter.Storage
	poller    *Poller

	mu   sync.Mutex
	busy bool
}

// NewInput contains dependencies for creating a generation service
type NewInput struct {
	Store     repository.HistoryStore
	Client    adapter.GenAI
	Artifacts adapter.Storage

	// PollInterval overrides the operation poll interval (0 = default)
	PollInterval time.Duration
}

func New(input NewInput) (*Service, error) {
	if input.Store == nil {
		return nil, goerr.New("history store is required")
	}
	if input.Client == nil {
		return nil, goerr.New("generation client is required")
	}
	if input.Artifacts == nil {
		return nil, goerr.New("artifact storage is required")
	}

	var opts []PollerOption
	if input.PollInterval > 0 {
		opts = append(opts, WithInterval(input.PollInterval))
	}

	return &Service{
		store:     input.Store,
		client:    input.Client,
		artifacts: input.Artifacts,
		poller:    NewPoller(input.Store, input.Client, input.Artifacts, opts...),
	}, nil
}

// Poller exposes the operation poller for waiting and teardown
func (s *Service) Poller() *Poller {
	return s.poller
}

// History returns the session log in append order
func (s *Service) History() []*model.HistoryItem {
	return s.store.List()
}

// IsGenerating reports whether any job is unfinished
func (s *Service) IsGenerating() bool {
	s.mu.Lock()
	busy := s.busy
	s.mu.Unlock()
	return busy || s.poller.Active() != nil
}

func (s *Service) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return goerr.Wrap(ErrGenerationInFlight, "image generation busy")
	}
	if s.poller.Active() != nil {
		return goerr.Wrap(ErrGenerationInFlight, "video operation active")
	}
	s.busy = true
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// appendPair records the user prompt and a loading placeholder, and
// returns the placeholder's ID. Every later mutation targets that ID.
func (s *Service) appendPair(prompt, modelName string, images []*model.InputImage) (model.ItemID, error) {
	user := &model.HistoryItem{
		ID:          model.NewItemID(),
		Role:        model.RoleUser,
		Kind:        model.KindText,
		Content:     prompt,
		InputImages: images,
	}
	if err := s.store.Append(user); err != nil {
		return "", err
	}

	loading := &model.HistoryItem{
		ID:        model.NewItemID(),
		Role:      model.RoleModel,
		Kind:      model.KindText,
		IsLoading: true,
		ModelName: modelName,
	}
	if err := s.store.Append(loading); err != nil {
		return "", err
	}
	return loading.ID, nil
}

// ImageInput describes one image generation request
type ImageInput struct {
	Prompt string
	Model  string
	Images []*model.InputImage
}

// GenerateImage runs a synchronous image generation and resolves the
// placeholder item to an image or an error. The returned ID is the
// placeholder's; the second return reports the generation result.
func (s *Service) GenerateImage(ctx context.Context, input *ImageInput) (model.ItemID, error) {
	if input.Prompt == "" {
		return "", goerr.New("prompt is required")
	}
	if len(input.Images) > maxImageReferenceImages {
		return "", goerr.New("too many reference images",
			goerr.V("count", len(input.Images)), goerr.V("max", maxImageReferenceImages))
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	id, err := s.appendPair(input.Prompt, input.Model, input.Images)
	if err != nil {
		return "", err
	}

	result, err := s.client.GenerateImage(ctx, &adapter.ImageRequest{
		Prompt: input.Prompt,
		Model:  input.Model,
		Images: input.Images,
	})
	if err != nil {
		if uerr := s.store.Update(id, errorPatch("Failed to generate image: "+err.Error())); uerr != nil {
			return id, uerr
		}
		return id, err
	}

	dataURL := model.EncodeDataURL(result.Data, result.MIMEType)
	kind := model.KindImage
	loading := false
	if err := s.store.Update(id, repository.Patch{
		Kind:      &kind,
		MediaURL:  &dataURL,
		IsLoading: &loading,
	}); err != nil {
		return id, err
	}

	return id, nil
}

// VideoInput describes one video generation request
type VideoInput struct {
	Prompt          string
	Model           string
	NegativePrompt  string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	Images          []*model.InputImage
}

// normalize applies the Veo parameter constraints: image-conditioned or
// high-resolution jobs only support 8 second outputs.
func (input *VideoInput) normalize() {
	highRes := input.Resolution == "1080p" || input.Resolution == "4k"
	if len(input.Images) > 0 || highRes {
		input.DurationSeconds = 8
	}
}

// StartVideo submits a video generation job and hands the returned
// operation to the poller. A submission failure resolves the
// placeholder item to an error and is also returned to the caller.
func (s *Service) StartVideo(ctx context.Context, input *VideoInput) (model.ItemID, error) {
	if input.Prompt == "" {
		return "", goerr.New("prompt is required")
	}
	if len(input.Images) > maxVideoReferenceImages {
		return "", goerr.New("too many reference images",
			goerr.V("count", len(input.Images)), goerr.V("max", maxVideoReferenceImages))
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	input.normalize()

	id, err := s.appendPair(input.Prompt, input.Model, input.Images)
	if err != nil {
		return "", err
	}

	name, err := s.client.StartVideoGeneration(ctx, &adapter.VideoRequest{
		Prompt:          input.Prompt,
		Model:           input.Model,
		NegativePrompt:  input.NegativePrompt,
		AspectRatio:     input.AspectRatio,
		Resolution:      input.Resolution,
		DurationSeconds: input.DurationSeconds,
		Images:          input.Images,
	})
	if err != nil {
		if uerr := s.store.Update(id, errorPatch("Failed to start video generation: "+err.Error())); uerr != nil {
			return id, uerr
		}
		return id, err
	}

	if err := s.store.Update(id, repository.PatchContent(loadingVideoMessage)); err != nil {
		return id, err
	}

	if err := s.poller.Start(ctx, model.OperationHandle{ItemID: id, Name: name}); err != nil {
		if uerr := s.store.Update(id, errorPatch(err.Error())); uerr != nil {
			return id, uerr
		}
		return id, err
	}

	return id, nil
}
