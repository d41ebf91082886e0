package generate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/veostudio/pkg/adapter"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/usecase/generate"
)

func TestGenerateImageSuccess(t *testing.T) {
	mock := newMockGenAI()
	mock.imageResult = &adapter.ImageResult{
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
		MIMEType: "image/png",
	}
	svc, store := setupService(t, mock)

	id, err := svc.GenerateImage(context.Background(), &generate.ImageInput{
		Prompt: "a watercolor lighthouse",
		Model:  "gemini-3-pro-image-preview",
	})
	gt.NoError(t, err)

	item, err := store.Get(id)
	gt.NoError(t, err)
	gt.Equal(t, item.Kind, model.KindImage)
	gt.False(t, item.IsLoading)
	gt.S(t, item.MediaURL).Contains("data:image/png;base64,")

	// The user prompt and the result are two separate log entries
	items := store.List()
	gt.A(t, items).Length(2)
	gt.Equal(t, items[0].Role, model.RoleUser)
	gt.Equal(t, items[0].Content, "a watercolor lighthouse")
	gt.Equal(t, items[1].Role, model.RoleModel)

	gt.False(t, svc.IsGenerating())
}

func TestGenerateImageFailureResolvesItem(t *testing.T) {
	mock := newMockGenAI()
	mock.imageErr = goerr.New("no image generated")
	svc, store := setupService(t, mock)

	id, err := svc.GenerateImage(context.Background(), &generate.ImageInput{
		Prompt: "broken",
		Model:  "gemini-3-pro-image-preview",
	})
	gt.Error(t, err)

	item, gerr := store.Get(id)
	gt.NoError(t, gerr)
	gt.Equal(t, item.Kind, model.KindError)
	gt.S(t, item.Content).Contains("no image generated")
	gt.False(t, item.IsLoading)

	// The failure is contained; a new generation may start
	gt.False(t, svc.IsGenerating())
}

func TestGenerateImageTooManyReferences(t *testing.T) {
	mock := newMockGenAI()
	svc, store := setupService(t, mock)

	images := make([]*model.InputImage, 7)
	for i := range images {
		images[i] = &model.InputImage{Data: []byte{0x01}, MIMEType: "image/png"}
	}

	_, err := svc.GenerateImage(context.Background(), &generate.ImageInput{
		Prompt: "collage",
		Model:  "gemini-3-pro-image-preview",
		Images: images,
	})
	gt.Error(t, err)
	gt.A(t, store.List()).Length(0)
}

func TestImageBlockedWhileVideoActive(t *testing.T) {
	mock := newMockGenAI() // poll never terminal
	svc, _ := setupService(t, mock)

	_, err := svc.StartVideo(context.Background(), &generate.VideoInput{
		Prompt: "a long job",
		Model:  "veo-3.1-generate-preview",
	})
	gt.NoError(t, err)

	_, err = svc.GenerateImage(context.Background(), &generate.ImageInput{
		Prompt: "meanwhile",
		Model:  "gemini-3-pro-image-preview",
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, generate.ErrGenerationInFlight))

	svc.Poller().Stop()
}

func TestVideoSubmissionFailure(t *testing.T) {
	mock := newMockGenAI()
	mock.videoName = ""
	mock.videoErr = goerr.New("invalid resolution")
	svc, store := setupService(t, mock)

	id, err := svc.StartVideo(context.Background(), &generate.VideoInput{
		Prompt: "bad params",
		Model:  "veo-3.1-generate-preview",
	})
	gt.Error(t, err)

	item, gerr := store.Get(id)
	gt.NoError(t, gerr)
	gt.Equal(t, item.Kind, model.KindError)
	gt.S(t, item.Content).Contains("invalid resolution")
	gt.Nil(t, svc.Poller().Active())
}

func TestVideoDurationCoercion(t *testing.T) {
	input := &generate.VideoInput{
		Prompt:          "high res",
		Model:           "veo-3.1-generate-preview",
		Resolution:      "1080p",
		DurationSeconds: 4,
	}

	mock := newMockGenAI(
		pollStep{raw: []byte(`{"done":true,"response":{"generatedVideos":[{"video":{"uri":"file://x"}}]}}`)},
	)
	svc, _ := setupService(t, mock)

	_, err := svc.StartVideo(context.Background(), input)
	gt.NoError(t, err)
	gt.Equal(t, input.DurationSeconds, 8)
	waitDone(t, svc)
}
