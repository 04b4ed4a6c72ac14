package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/pipeline"
	"github.com/xhad/docsift/server"
	"go.uber.org/zap"
)

func serveAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.Context = ctx

	a, err := setup(c, true)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.config.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv, err := server.NewWithConfig(server.Config{
		Addr:           addr,
		AllowedOrigins: a.config.Server.AllowedOrigins,
		Logger:         a.logger,
		Analyzer:       a.pipeline,
		Registry:       a.registry,
		Store:          a.reports,
		Embedder:       a.embedder,
	})
	if err != nil {
		return err
	}

	a.logger.Info("server starting",
		zap.String("addr", addr),
		zap.Bool("all_models_ready", a.registry.Ready()),
		zap.Bool("storage", a.reports != nil))

	return srv.ListenAndServe(ctx)
}

func analyzeAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("usage: docsift analyze FILE", 2)
	}
	mode, ok := models.ParseAnalysisMode(c.String("type"))
	if !ok {
		return cli.Exit("analysis type must be one of: individual, combined, both", 2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.Context = ctx

	a, err := setup(c, true)
	if err != nil {
		return err
	}
	defer a.close()

	spinner := getSpinner("Extracting text...")
	var bar *progressbar.ProgressBar
	report, err := a.pipeline.Run(ctx, pipeline.Request{
		Data:     data,
		Filename: filepath.Base(path),
		Mode:     mode,
		Progress: func(done, total int) {
			if bar == nil {
				spinner.Finish()
				bar = getProgressBar(total, "Analyzing lines...")
			}
			bar.Set(done)
		},
	})
	spinner.Finish()
	if bar != nil {
		bar.Finish()
	}
	os.Stderr.WriteString("\n")
	if err != nil {
		return exitError(err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(os.Stdout, report)
	return nil
}

func statusAction(c *cli.Context) error {
	a, err := setup(c, false)
	if err != nil {
		return err
	}
	defer a.close()

	printStatus(os.Stdout, a.registry.Status(), a.registry.Ready())
	if !a.registry.Ready() {
		color.Yellow("\nSome capabilities are unavailable; reports will fall back to defaults for them.")
	}
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("lines"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
