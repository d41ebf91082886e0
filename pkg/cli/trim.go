package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/media"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/usecase/trim"
	"github.com/urfave/cli/v3"
)

func trimCommand() *cli.Command {
	var (
		cfg    config
		input  string
		output string
		start  float64
		end    float64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Video file to trim",
			Required:    true,
			Destination: &input,
		},
		&cli.StringFlag{
			Name:        "out-file",
			Usage:       "File name for the trimmed clip (default: <input>-trimmed.webm)",
			Destination: &output,
		},
		&cli.FloatFlag{
			Name:        "start",
			Usage:       "Window start in seconds",
			Destination: &start,
		},
		&cli.FloatFlag{
			Name:        "end",
			Usage:       "Window end in seconds",
			Destination: &end,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "trim",
		Usage: "Cut a window out of a local video file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := cfg.newLogger(); err != nil {
				return err
			}

			el, err := media.NewFileElement(input)
			if err != nil {
				return err
			}

			ctrl := trim.NewController(el, media.NewFileRecorderFactory())
			if err := ctrl.Load(); err != nil {
				return goerr.Wrap(err, "failed to load video")
			}

			duration := ctrl.Duration()
			fmt.Fprintf(c.Root().Writer, "Loaded %s (%s)\n", input, trim.FormatTime(duration))

			if end <= 0 {
				end = duration
			}
			if err := ctrl.SetRange(model.TrimRange{Start: start, End: end}); err != nil {
				return err
			}

			r := ctrl.Range()
			fmt.Fprintf(c.Root().Writer, "Recording window %s - %s in real time...\n",
				trim.FormatTime(r.Start), trim.FormatTime(r.End))

			clip, err := ctrl.Commit(ctx)
			if err != nil {
				return goerr.Wrap(err, "trim failed")
			}
			if clip == nil {
				return goerr.New("the source offers no capture path; clip not produced")
			}

			if output == "" {
				base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				output = base + "-trimmed.webm"
			}
			if err := os.WriteFile(output, clip.Data, 0o644); err != nil {
				return goerr.Wrap(err, "failed to write clip", goerr.V("path", output))
			}

			fmt.Fprintf(c.Root().Writer, "Saved %s clip to %s (%d bytes)\n",
				trim.FormatTime(r.Span()), output, len(clip.Data))
			return nil
		},
	}
}
