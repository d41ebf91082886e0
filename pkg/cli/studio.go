package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/usecase/generate"
	"github.com/urfave/cli/v3"
)

func studioCommand() *cli.Command {
	var cfg config

	flags := genaiFlags(&cfg)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "studio",
		Usage: "Interactive generation session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := cfg.newLogger(); err != nil {
				return err
			}

			svc, err := cfg.newService(ctx)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Studio session started. Plain text generates, /help lists commands.\n")

			session := &studioSession{svc: svc, mode: "image", cfg: &cfg}
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "/exit" || line == "/quit" {
					break
				}

				if err := session.handle(ctx, w, line); err != nil {
					fmt.Fprintf(w, "error: %s\n", err.Error())
				}
			}

			fmt.Fprintf(w, "\nStudio session ended\n")
			return nil
		},
	}
}

type studioSession struct {
	svc  *generate.Service
	cfg  *config
	mode string
}

func (s *studioSession) handle(ctx context.Context, w io.Writer, line string) error {
	switch {
	case line == "/help":
		fmt.Fprint(w, studioHelp)
		return nil
	case line == "/history":
		s.printHistory(w)
		return nil
	case strings.HasPrefix(line, "/mode"):
		return s.switchMode(w, strings.TrimSpace(strings.TrimPrefix(line, "/mode")))
	case strings.HasPrefix(line, "/video "):
		return s.startVideo(ctx, w, strings.TrimSpace(strings.TrimPrefix(line, "/video ")))
	case strings.HasPrefix(line, "/image "):
		return s.generateImage(ctx, w, strings.TrimSpace(strings.TrimPrefix(line, "/image ")))
	case strings.HasPrefix(line, "/"):
		return goerr.New("unknown command", goerr.V("command", line))
	case s.mode == "video":
		return s.startVideo(ctx, w, line)
	default:
		return s.generateImage(ctx, w, line)
	}
}

const studioHelp = `  <prompt>          generate in the current mode
  /image <prompt>   generate an image
  /video <prompt>   start a video generation job
  /mode [image|video]
  /history          show the session history
  /exit
`

func (s *studioSession) switchMode(w io.Writer, mode string) error {
	switch mode {
	case "":
		fmt.Fprintf(w, "mode: %s\n", s.mode)
		return nil
	case "image", "video":
		s.mode = mode
		fmt.Fprintf(w, "mode set to %s\n", mode)
		return nil
	default:
		return goerr.New("unknown mode", goerr.V("mode", mode))
	}
}

func (s *studioSession) generateImage(ctx context.Context, w io.Writer, prompt string) error {
	id, err := s.svc.GenerateImage(ctx, &generate.ImageInput{
		Prompt: prompt,
		Model:  s.cfg.imageModel,
	})
	if err != nil {
		return err
	}

	item, err := findItem(s.svc, id)
	if err != nil {
		return err
	}
	path, err := saveDataURL(s.cfg.outputDir, "", string(id), item.MediaURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "saved image to %s\n", path)
	return nil
}

func (s *studioSession) startVideo(ctx context.Context, w io.Writer, prompt string) error {
	id, err := s.svc.StartVideo(ctx, &generate.VideoInput{
		Prompt: prompt,
		Model:  s.cfg.videoModel,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "video job started (%s); check /history for the result\n", id)
	return nil
}

func (s *studioSession) printHistory(w io.Writer) {
	items := s.svc.History()
	if len(items) == 0 {
		fmt.Fprintf(w, "history is empty\n")
		return
	}

	for _, item := range items {
		status := string(item.Kind)
		if item.IsLoading {
			status = "pending"
		}
		line := item.Content
		if item.Kind == model.KindVideo || item.Kind == model.KindImage {
			line = item.MediaURL
		}
		fmt.Fprintf(w, "[%s] %-7s %s\n", item.Timestamp.Format("15:04:05"), status, truncateLine(line))
	}
}

func truncateLine(s string) string {
	const max = 80
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
