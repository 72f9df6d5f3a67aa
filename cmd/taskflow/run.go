package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/sicko7947/taskflow/agent"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one request through the pipeline and print the result as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "prompt",
				Aliases:  []string{"p"},
				Usage:    "Prompt to process",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "Request parameter as key=value, may be repeated",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			params, err := parseParams(cmd.StringSlice("param"))
			if err != nil {
				return err
			}

			a, err := setup(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			resp, err := a.agent.Handle(ctx, agent.Request{
				Prompt: cmd.String("prompt"),
				Params: params,
			})
			if err != nil && !errors.Is(err, agent.ErrWorkflowFailed) {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(resp); encErr != nil {
				return fmt.Errorf("failed to encode response: %w", encErr)
			}

			return err
		},
	}
}

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}
