package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/sicko7947/taskflow/config"
)

func NewConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Commands: []*cli.Command{
			{
				Name:  "default",
				Usage: "Print the default configuration file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprint(cmd.Root().Writer, config.DefaultYAML())
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration after file and flag overrides",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}

					out, err := yaml.Marshal(cfg)
					if err != nil {
						return fmt.Errorf("failed to encode config: %w", err)
					}
					_, err = cmd.Root().Writer.Write(out)
					return err
				},
			},
		},
	}
}
