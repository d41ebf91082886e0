package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/veostudio/pkg/server"
	"github.com/m-mizutani/veostudio/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("VEOSTUDIO_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, genaiFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the API forwarding server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := logging.ParseLevel(cfg.logLevel); err != nil {
				return err
			}
			logger := logging.NewJSON(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)

			client, err := cfg.newGenAI(ctx)
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Addr:       addr,
				GenAI:      client,
				ImageModel: cfg.imageModel,
				VideoModel: cfg.videoModel,
				Logger:     logger,
				StartTime:  time.Now(),
			})

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
