package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/usecase/generate"
	"github.com/urfave/cli/v3"
)

func videoCommand() *cli.Command {
	var (
		cfg            config
		prompt         string
		presetName     string
		negativePrompt string
		aspectRatio    string
		resolution     string
		duration       int64
		images         []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Video generation prompt",
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "preset",
			Usage:       "Preset name to load parameters from",
			Destination: &presetName,
		},
		&cli.StringFlag{
			Name:        "negative-prompt",
			Usage:       "What the video should avoid",
			Destination: &negativePrompt,
		},
		&cli.StringFlag{
			Name:        "aspect-ratio",
			Usage:       "Aspect ratio (16:9 or 9:16)",
			Value:       "16:9",
			Destination: &aspectRatio,
		},
		&cli.StringFlag{
			Name:        "resolution",
			Usage:       "Resolution (720p, 1080p or 4k)",
			Value:       "720p",
			Destination: &resolution,
		},
		&cli.IntFlag{
			Name:        "duration",
			Usage:       "Duration in seconds (4, 6 or 8)",
			Value:       8,
			Destination: &duration,
		},
		&cli.StringSliceFlag{
			Name:        "image",
			Aliases:     []string{"i"},
			Usage:       "Reference image file (repeatable, up to 3)",
			Destination: &images,
		},
	}
	flags = append(flags, genaiFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, presetFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "video",
		Usage: "Generate a video and wait for the result",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := cfg.newLogger(); err != nil {
				return err
			}

			mdl := cfg.videoModel
			if p, err := cfg.resolvePreset(presetName); err != nil {
				return err
			} else if p != nil {
				if prompt == "" {
					prompt = p.Prompt
				}
				if p.Model != "" {
					mdl = p.Model
				}
				if negativePrompt == "" {
					negativePrompt = p.NegativePrompt
				}
				if p.AspectRatio != "" {
					aspectRatio = p.AspectRatio
				}
				if p.Resolution != "" {
					resolution = p.Resolution
				}
				if p.DurationSeconds > 0 {
					duration = int64(p.DurationSeconds)
				}
			}
			if prompt == "" {
				return goerr.New("prompt is required")
			}

			refs, err := readImageFiles(images)
			if err != nil {
				return err
			}

			svc, err := cfg.newService(ctx)
			if err != nil {
				return err
			}

			id, err := svc.StartVideo(ctx, &generate.VideoInput{
				Prompt:          prompt,
				Model:           mdl,
				NegativePrompt:  negativePrompt,
				AspectRatio:     aspectRatio,
				Resolution:      resolution,
				DurationSeconds: int(duration),
				Images:          refs,
			})
			if err != nil {
				return goerr.Wrap(err, "video submission failed")
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Generating video..."
			sp.Start()
			waitErr := svc.Poller().Wait(ctx)
			sp.Stop()
			if waitErr != nil {
				return goerr.Wrap(waitErr, "waiting for video generation")
			}

			item, err := findItem(svc, id)
			if err != nil {
				return err
			}
			if item.Kind == model.KindError {
				return goerr.New("video generation failed", goerr.V("message", item.Content))
			}

			fmt.Fprintf(c.Root().Writer, "Saved video to %s\n", item.MediaURL)
			return nil
		},
	}
}
