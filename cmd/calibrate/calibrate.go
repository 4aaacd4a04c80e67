package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"charucocalib/internal/app"
	"charucocalib/internal/artifact"
	"charucocalib/internal/calibration"
	"charucocalib/internal/config"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/repository/sqlite"
)

// applyFlags overrides the loaded configuration with the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	cfg.VideoPath = c.String(flagVideo)
	cfg.BoardSquaresX = c.Int(flagSquaresX)
	cfg.BoardSquaresY = c.Int(flagSquaresY)
	cfg.BoardSquareLength = c.Float64(flagSquareLength)
	cfg.BoardMarkerLength = c.Float64(flagMarkerLength)
	cfg.BoardDictionary = c.String(flagDictionary)
	cfg.AcceptPolicy = c.String(flagPolicy)
	cfg.MinCorners = c.Int(flagMinCorners)
	cfg.MinMarkers = c.Int(flagMinMarkers)
	cfg.MinViews = c.Int(flagMinViews)
	cfg.MaxRMS = c.Float64(flagMaxRMS)
	cfg.OutputPath = c.String(flagOutput)
	cfg.Debug = c.Bool(flagDebug)
	if c.IsSet(flagFormat) {
		cfg.OutputFormat = c.String(flagFormat)
	} else {
		cfg.OutputFormat = string(artifact.FormatFromPath(cfg.OutputPath))
	}
	cfg.DBPath = c.String(flagDB)
}

func runCalibrate(c *cli.Context, cfg *config.Config) error {
	applyFlags(c, cfg)

	format, err := artifact.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return cli.Exit(err, exitUsage)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return cli.Exit(err, exitUsage)
	}
	defer log.Close()

	pipeline, det, err := app.NewPipeline(cfg, log)
	if err != nil {
		return cli.Exit(err, exitUsage)
	}
	defer det.Close()

	res, runErr := pipeline.Run(c.Context, cfg.VideoPath)
	calibration.Report(c.App.Writer, res, runErr)

	var saved string
	if runErr == nil && !c.Bool(flagNoSave) {
		if err := artifact.Save(cfg.OutputPath, format, res.Intrinsics); err != nil {
			runErr = err
			fmt.Fprintf(c.App.ErrWriter, "Failed to save calibration: %v\n", err)
		} else {
			saved = cfg.OutputPath
			fmt.Fprintf(c.App.Writer, "Calibration saved to %s\n", saved)
		}
	}

	if cfg.DBPath != "" {
		if err := record(cfg.DBPath, res, saved, runErr); err != nil {
			log.Error("Failed to record calibration in %s: %v", cfg.DBPath, err)
		}
	}

	if runErr != nil {
		return cli.Exit("", exitFailure)
	}
	return nil
}

// record stores the run and its frames in the history database.
func record(dbPath string, res *model.Result, artifactPath string, runErr error) (err error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if artifactPath != "" {
		if abs, absErr := filepath.Abs(artifactPath); absErr == nil {
			artifactPath = abs
		}
	}
	cal := model.NewCalibration(res, artifactPath, runErr)
	id, err := sqlite.NewCalibrationRepository(db).Insert(&cal)
	if err != nil {
		return err
	}
	frames := res.CalibrationFrames()
	if len(frames) == 0 {
		return nil
	}
	return sqlite.NewFrameRepository(db).InsertBatch(id, frames)
}
