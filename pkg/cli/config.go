package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/adapter"
	"github.com/m-mizutani/veostudio/pkg/repository"
	"github.com/m-mizutani/veostudio/pkg/usecase/generate"
	"github.com/m-mizutani/veostudio/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	defaultImageModel = "gemini-3-pro-image-preview"
	defaultVideoModel = "veo-3.1-generate-preview"
)

// config holds configuration values
type config struct {
	// Adapter
	geminiAPIKey string
	imageModel   string
	videoModel   string

	// Storage
	outputDir string
	bucket    string

	// Presets
	presetsFile string

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("VEOSTUDIO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// genaiFlags returns flags for the generative API configuration
func genaiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "image-model",
			Usage:       "Model for image generation",
			Value:       defaultImageModel,
			Sources:     cli.EnvVars("VEOSTUDIO_IMAGE_MODEL"),
			Destination: &cfg.imageModel,
		},
		&cli.StringFlag{
			Name:        "video-model",
			Usage:       "Model for video generation",
			Value:       defaultVideoModel,
			Sources:     cli.EnvVars("VEOSTUDIO_VIDEO_MODEL"),
			Destination: &cfg.videoModel,
		},
	}
}

// storageFlags returns flags for artifact storage
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "Local directory for generated artifacts",
			Value:       "out",
			Sources:     cli.EnvVars("VEOSTUDIO_OUTPUT_DIR"),
			Destination: &cfg.outputDir,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "GCS bucket for generated artifacts (overrides output-dir)",
			Sources:     cli.EnvVars("VEOSTUDIO_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// presetFlags returns flags for the prompt preset file
func presetFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "presets-file",
			Usage:       "Path to YAML presets file",
			Sources:     cli.EnvVars("VEOSTUDIO_PRESETS"),
			Destination: &cfg.presetsFile,
		},
	}
}

// newLogger builds a logger from the configured level and installs it
// as the default
func (cfg *config) newLogger() (*slog.Logger, error) {
	if _, err := logging.ParseLevel(cfg.logLevel); err != nil {
		return nil, err
	}
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logger, nil
}

// newGenAI creates the generative API adapter
func (cfg *config) newGenAI(ctx context.Context) (adapter.GenAI, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}
	client, err := adapter.NewGenAI(ctx, cfg.geminiAPIKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	return client, nil
}

// newStorage creates the artifact store: GCS when a bucket is
// configured, a local directory otherwise
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket != "" {
		st, err := adapter.NewGCSStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GCS storage")
		}
		return st, nil
	}
	st, err := adapter.NewDirStorage(cfg.outputDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create local storage")
	}
	return st, nil
}

// newService wires the full generation stack
func (cfg *config) newService(ctx context.Context) (*generate.Service, error) {
	client, err := cfg.newGenAI(ctx)
	if err != nil {
		return nil, err
	}
	artifacts, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}
	return generate.New(generate.NewInput{
		Store:     repository.NewMemory(),
		Client:    client,
		Artifacts: artifacts,
	})
}
