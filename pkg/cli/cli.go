package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "veostudio",
		Usage: "Image and video generation studio for Gemini and Veo",
		Commands: []*cli.Command{
			generateCommand(),
			videoCommand(),
			studioCommand(),
			trimCommand(),
			serveCommand(),
			presetsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
