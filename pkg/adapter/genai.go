package adapter

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

const defaultAPIBase = "https://generativelanguage.googleapis.com"

// ImageRequest is a Gemini image generation request. Images carries
// reference images for edit/compose flows.
type ImageRequest struct {
	Prompt string
	Model  string
	Images []*model.InputImage
}

// ImageResult is the generated image payload
type ImageResult struct {
	Data     []byte
	MIMEType string
}

// VideoRequest is a Veo video generation request
type VideoRequest struct {
	Prompt          string
	Model           string
	NegativePrompt  string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	Images          []*model.InputImage
}

type GenAI interface {
	// GenerateImage runs a synchronous Gemini image generation
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error)

	// StartVideoGeneration submits a Veo job and returns the operation name
	StartVideoGeneration(ctx context.Context, req *VideoRequest) (string, error)

	// PollOperation fetches the raw operation status payload
	PollOperation(ctx context.Context, name string) ([]byte, error)

	// DownloadFile fetches the binary artifact behind a file URI
	DownloadFile(ctx context.Context, uri string) ([]byte, error)
}

type GenAIClient struct {
	client     *genai.Client
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

type GenAIOption func(*GenAIClient)

// WithAPIBase overrides the REST endpoint used for operation polling
// and artifact download
func WithAPIBase(base string) GenAIOption {
	return func(g *GenAIClient) {
		g.apiBase = strings.TrimSuffix(base, "/")
	}
}

// WithHTTPClient overrides the HTTP client for REST calls
func WithHTTPClient(c *http.Client) GenAIOption {
	return func(g *GenAIClient) {
		g.httpClient = c
	}
}

func NewGenAI(ctx context.Context, apiKey string, opts ...GenAIOption) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GenAIClient{
		client:     client,
		apiKey:     apiKey,
		apiBase:    defaultAPIBase,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// blockOnlyHigh matches the safety posture of the studio: only clearly
// harmful prompts are rejected by the model side.
func blockOnlyHigh() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHarassment,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
		})
	}
	return settings
}

func (g *GenAIClient) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if req.Prompt == "" {
		return nil, goerr.New("prompt is required")
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		SafetySettings: blockOnlyHigh(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate image", goerr.V("model", req.Model))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, goerr.New("no candidates returned", goerr.V("model", req.Model))
	}

	// The response interleaves text and inline data; the first inline
	// data part is the image.
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &ImageResult{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}

	return nil, goerr.New("no image generated", goerr.V("model", req.Model))
}

func (g *GenAIClient) StartVideoGeneration(ctx context.Context, req *VideoRequest) (string, error) {
	if req.Prompt == "" {
		return "", goerr.New("prompt is required")
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
		NegativePrompt: req.NegativePrompt,
	}
	if req.DurationSeconds > 0 {
		config.DurationSeconds = genai.Ptr(int32(req.DurationSeconds))
	}

	var image *genai.Image
	switch {
	case len(req.Images) == 1:
		image = &genai.Image{
			ImageBytes: req.Images[0].Data,
			MIMEType:   req.Images[0].MIMEType,
		}
	case len(req.Images) > 1:
		refs := make([]*genai.VideoGenerationReferenceImage, 0, len(req.Images))
		for _, img := range req.Images {
			refs = append(refs, &genai.VideoGenerationReferenceImage{
				Image: &genai.Image{
					ImageBytes: img.Data,
					MIMEType:   img.MIMEType,
				},
				ReferenceType: genai.VideoGenerationReferenceTypeAsset,
			})
		}
		config.ReferenceImages = refs
	}

	op, err := g.client.Models.GenerateVideos(ctx, req.Model, req.Prompt, image, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to start video generation", goerr.V("model", req.Model))
	}
	if op == nil || op.Name == "" {
		return "", goerr.New("no operation name returned", goerr.V("model", req.Model))
	}

	return op.Name, nil
}

// PollOperation calls the REST endpoint directly instead of the typed
// operation getter: the interpreter needs the raw payload because the
// "done" response shape varies across model versions and the typed
// struct drops the fields it probes.
func (g *GenAIClient) PollOperation(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, goerr.New("operation name is required")
	}

	url := g.apiBase + "/v1beta/" + name + "?key=" + g.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create poll request")
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to poll operation", goerr.V("name", name))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read poll response", goerr.V("name", name))
	}

	if resp.StatusCode != http.StatusOK {
		// A non-2xx status can still carry a terminal operation error
		// (expired or unknown operation names come back as 404 with an
		// error payload). Hand such payloads to the caller so the
		// failure resolves the job instead of being retried forever.
		if gjson.ValidBytes(body) && gjson.GetBytes(body, "error").Exists() {
			return body, nil
		}
		return nil, goerr.New("operation status request failed",
			goerr.V("name", name), goerr.V("status", resp.StatusCode))
	}

	return body, nil
}

func (g *GenAIClient) DownloadFile(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, goerr.New("file uri is required")
	}

	url := uri
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = g.apiBase + "/" + strings.TrimPrefix(url, "/")
	}
	if strings.Contains(url, "?") {
		url += "&key=" + g.apiKey
	} else {
		url += "?key=" + g.apiKey
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create download request")
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download file", goerr.V("uri", uri))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("file download failed",
			goerr.V("uri", uri), goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file body", goerr.V("uri", uri))
	}

	return body, nil
}
