package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docsift",
		Usage: "Analyze PDF and Excel documents for sentiment, summaries and entities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to config file",
			},
			&cli.StringFlag{
				Name:  "ollama-url",
				Usage: "Ollama server URL",
			},
			&cli.StringFlag{
				Name:  "db-url",
				Usage: "PostgreSQL connection string for report storage",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP and websocket API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
				},
				Action: serveAction,
			},
			{
				Name:      "analyze",
				Usage:     "Analyze a local document",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   "both",
						Usage:   "Analysis type: individual, combined or both",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the report as JSON",
					},
				},
				Action: analyzeAction,
			},
			{
				Name:   "status",
				Usage:  "Probe the configured models and show which capabilities are available",
				Action: statusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
