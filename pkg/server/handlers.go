package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/veostudio/pkg/adapter"
	"github.com/m-mizutani/veostudio/pkg/model"
)

const maxUploadSize = 32 << 20

func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/gemini/generate", generateImageHandler(cfg))
		r.Post("/gemini/edit", editImageHandler(cfg))
		r.Post("/veo/generate", generateVideoHandler(cfg))
		r.Post("/veo/operation", pollOperationHandler(cfg))
		r.Post("/veo/download", downloadHandler(cfg))
	})

	return r
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: uptime,
		})
	}
}

func generateImageHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Prompt == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		if req.Model == "" {
			req.Model = cfg.ImageModel
		}

		result, err := cfg.GenAI.GenerateImage(r.Context(), &adapter.ImageRequest{
			Prompt: req.Prompt,
			Model:  req.Model,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		writeImage(w, result)
	}
}

func editImageHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "BAD_REQUEST")
			return
		}

		prompt := r.FormValue("prompt")
		if prompt == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		mdl := r.FormValue("model")
		if mdl == "" {
			mdl = cfg.ImageModel
		}

		images, err := readUploads(r.MultipartForm.File["imageFiles"])
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read uploaded image", "BAD_REQUEST")
			return
		}

		result, err := cfg.GenAI.GenerateImage(r.Context(), &adapter.ImageRequest{
			Prompt: prompt,
			Model:  mdl,
			Images: images,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		writeImage(w, result)
	}
}

func generateVideoHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "BAD_REQUEST")
			return
		}

		prompt := r.FormValue("prompt")
		if prompt == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		mdl := r.FormValue("model")
		if mdl == "" {
			mdl = cfg.VideoModel
		}

		duration := 0
		if v := r.FormValue("durationSeconds"); v != "" {
			d, err := strconv.Atoi(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid durationSeconds", "BAD_REQUEST")
				return
			}
			duration = d
		}

		images, err := readUploads(r.MultipartForm.File["imageFiles"])
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read uploaded image", "BAD_REQUEST")
			return
		}

		name, err := cfg.GenAI.StartVideoGeneration(r.Context(), &adapter.VideoRequest{
			Prompt:          prompt,
			Model:           mdl,
			NegativePrompt:  r.FormValue("negativePrompt"),
			AspectRatio:     r.FormValue("aspectRatio"),
			Resolution:      r.FormValue("resolution"),
			DurationSeconds: duration,
			Images:          images,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, GenerateVideoResponse{Name: name})
	}
}

func pollOperationHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OperationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}

		// the payload is forwarded untouched; its shape is the
		// caller's problem
		raw, err := cfg.GenAI.PollOperation(r.Context(), req.Name)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

func downloadHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.URI == "" {
			WriteError(w, http.StatusBadRequest, "uri is required", "BAD_REQUEST")
			return
		}

		data, err := cfg.GenAI.DownloadFile(r.Context(), req.URI)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func writeImage(w http.ResponseWriter, result *adapter.ImageResult) {
	WriteJSON(w, http.StatusOK, GenerateImageResponse{
		Image: ImagePayload{
			ImageBytes: base64.StdEncoding.EncodeToString(result.Data),
			MIMEType:   result.MIMEType,
		},
	})
}

func readUploads(headers []*multipart.FileHeader) ([]*model.InputImage, error) {
	var images []*model.InputImage
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, &model.InputImage{
			Data:     data,
			MIMEType: fh.Header.Get("Content-Type"),
		})
	}
	return images, nil
}
