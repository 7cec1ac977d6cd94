// Package main is the gyrosync command: it finds the offset between a gyro log and a video's
// optical flow.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/gyrosync/config"
	"go.viam.com/gyrosync/gyro"
	"go.viam.com/gyrosync/internal/report"
	"go.viam.com/gyrosync/lens"
	"go.viam.com/gyrosync/logging"
	"go.viam.com/gyrosync/opticalflow"
	"go.viam.com/gyrosync/synchronization"
)

const (
	flagConfig           = "config"
	flagGyro             = "gyro"
	flagFlow             = "flow"
	flagLens             = "lens"
	flagGuessOrientation = "guess-orientation"
	flagPlot             = "plot"
	flagDebug            = "debug"
)

func main() {
	app := &cli.App{
		Name:            "gyrosync",
		Usage:           "find the time offset between gyro data and video",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "load run configuration from `FILE` (json or yaml)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  flagGyro,
				Usage: "gyro csv `FILE`, overrides gyro_file",
			},
			&cli.StringFlag{
				Name:  flagFlow,
				Usage: "optical flow json `FILE`, overrides flow_file",
			},
			&cli.StringFlag{
				Name:  flagLens,
				Usage: "lens profile `FILE`, overrides lens_profile",
			},
			&cli.BoolFlag{
				Name:  flagGuessOrientation,
				Usage: "guess the gyro mounting orientation before syncing",
			},
			&cli.StringFlag{
				Name:  flagPlot,
				Usage: "write a plot of the offsets to `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: runSync,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
}

func runSync(c *cli.Context) (err error) {
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)
	defer func() {
		err = multierr.Combine(err, logger.Sync())
	}()

	gyroFile := override(c, flagGyro, cfg.ResolvePath(cfg.GyroFile))
	flowFile := override(c, flagFlow, cfg.ResolvePath(cfg.FlowFile))
	lensFile := override(c, flagLens, cfg.ResolvePath(cfg.LensProfile))

	source, err := loadGyro(gyroFile, cfg)
	if err != nil {
		return err
	}
	shared := gyro.NewShared(source)
	store, err := loadFlow(flowFile)
	if err != nil {
		return err
	}
	profile, err := lens.ReadProfile(lensFile)
	if err != nil {
		return err
	}
	logger.Infow("inputs loaded", "gyro", gyroFile, "flow", flowFile, "frames", store.Len(), "lens", profile.Name)

	computeParams := synchronization.NewComputeParams(shared, profile, cfg.ScaledFPS)
	progress := func(p float64) { logger.Debugf("progress %.1f%%", p*100) }

	if cfg.GuessOrientation || c.Bool(flagGuessOrientation) {
		guess, ok, err := synchronization.GuessOrientation(c.Context, logger.Sublogger("orientation"),
			store, cfg.Ranges, cfg.Sync, computeParams, progress)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("could not guess the gyro orientation")
		}
		logger.Infow("orientation guessed", "orientation", guess.Orientation.String(), "cost", guess.Cost)
		shared.Update(func(s *gyro.Source) {
			s.SetOrientation(guess.Orientation)
			s.ApplyTransforms()
		})
	}

	offsets, err := synchronization.FindOffsets(c.Context, logger.Sublogger("sync"),
		store, cfg.Ranges, cfg.Sync, computeParams, progress)
	if err != nil {
		return err
	}
	if c.Context.Err() != nil {
		logger.Warn("interrupted, results are partial")
	}
	if err := report.WriteTable(c.App.Writer, offsets); err != nil {
		return err
	}
	if summary, err := report.Summarize(offsets); err == nil {
		logger.Infow("offsets found",
			"windows", summary.Windows,
			"median_ms", summary.Median,
			"stddev_ms", summary.StdDev,
			"min_ms", summary.Min,
			"max_ms", summary.Max)
	} else {
		logger.Warn("no offset found in any range")
	}
	if plotFile := c.String(flagPlot); plotFile != "" && len(offsets) > 0 {
		if err := report.SavePlot(plotFile, offsets); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("gyrosync")
	}
	logger := logging.NewLogger("gyrosync")
	if level, err := logging.LevelFromString(cfg.LogLevel); cfg.LogLevel != "" && err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func override(c *cli.Context, flag, fallback string) string {
	if v := c.String(flag); v != "" {
		return v
	}
	return fallback
}

func loadGyro(path string, cfg *config.Config) (*gyro.Source, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening gyro file")
	}
	defer f.Close() //nolint:errcheck
	samples, err := gyro.ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading gyro file %q", path)
	}
	orientation, err := cfg.MountOrientation()
	if err != nil {
		return nil, err
	}
	source := gyro.NewSource(samples)
	source.SetOrientation(orientation)
	source.ApplyTransforms()
	return source, nil
}

func loadFlow(path string) (*opticalflow.Store, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening optical flow file")
	}
	defer f.Close() //nolint:errcheck
	store, err := opticalflow.ReadDataset(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading optical flow file %q", path)
	}
	return store, nil
}
