package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/sicko7947/taskflow/server"
)

const shutdownTimeout = 5 * time.Second

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address, overrides server.addr",
				Sources: cli.EnvVars("TASKFLOW_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr := cmd.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			srv := server.New(a.agent,
				server.WithLogger(a.logger),
				server.WithStore(a.store),
				server.WithVersion(version),
			)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(cfg.Server.Addr)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("Shutting down server...")
			if err := srv.Shutdown(shutdownTimeout); err != nil {
				a.logger.Error().Err(err).Msg("Server forced to shutdown")
			}
			a.logger.Info().Msg("Server stopped")

			return nil
		},
	}
}
