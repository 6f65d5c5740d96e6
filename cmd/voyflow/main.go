package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "voyflow",
		Usage:                 "Create, edit and run business process flows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage URL for flows and runs (file://<dir>)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "engine-config",
				Usage:   "Path to the engine policy YAML file",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			validateCommand(),
			applyCommand(),
			publishCommand(),
			runCommand(),
			completeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
