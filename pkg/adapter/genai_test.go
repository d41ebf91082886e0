package adapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/veostudio/pkg/adapter"
)

func TestPollOperationRaw(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"operations/op-1","done":false}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, "test-key", adapter.WithAPIBase(srv.URL))
	gt.NoError(t, err)

	body, err := client.PollOperation(ctx, "operations/op-1")
	gt.NoError(t, err)
	gt.S(t, string(body)).Contains(`"done":false`)
	gt.Equal(t, gotPath, "/v1beta/operations/op-1")
	gt.Equal(t, gotKey, "test-key")
}

func TestPollOperationUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, "test-key", adapter.WithAPIBase(srv.URL))
	gt.NoError(t, err)

	_, err = client.PollOperation(ctx, "operations/op-1")
	gt.Error(t, err)
}

func TestPollOperationErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Operation not found or expired","status":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, "test-key", adapter.WithAPIBase(srv.URL))
	gt.NoError(t, err)

	// An expired operation comes back as a 404 with an error payload.
	// The payload must reach the caller so the job fails instead of
	// being polled forever.
	body, err := client.PollOperation(ctx, "operations/op-gone")
	gt.NoError(t, err)
	gt.S(t, string(body)).Contains("Operation not found or expired")
}

func TestDownloadFileAppendsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("alt") != "media" {
			// The URI already carried a query; the key must be appended
			// without clobbering it.
			http.Error(w, "query dropped", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte{0x00, 0x00, 0x00, 0x1c})
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, "test-key", adapter.WithAPIBase(srv.URL))
	gt.NoError(t, err)

	data, err := client.DownloadFile(ctx, srv.URL+"/v1beta/files/abc:download?alt=media")
	gt.NoError(t, err)
	gt.A(t, data).Length(4)
}

func TestGenerateImageLive(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, apiKey)
	gt.NoError(t, err)

	result, err := client.GenerateImage(ctx, &adapter.ImageRequest{
		Prompt: "A watercolor painting of a lighthouse at dusk",
		Model:  "gemini-2.5-flash-image-preview",
	})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.A(t, result.Data).Longer(0)
	gt.S(t, result.MIMEType).Contains("image/")
}

func TestStartVideoGenerationLive(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGenAI(ctx, apiKey)
	gt.NoError(t, err)

	name, err := client.StartVideoGeneration(ctx, &adapter.VideoRequest{
		Prompt:          "a red fox in snow",
		Model:           "veo-3.1-generate-preview",
		AspectRatio:     "16:9",
		Resolution:      "720p",
		DurationSeconds: 4,
	})
	gt.NoError(t, err)
	gt.S(t, name).Contains("operations/")
}
