// Package main is the command line calibration tool. It reads a ChArUco calibration video,
// prints the estimated intrinsics and saves them as an artifact.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"charucocalib/internal/config"
)

const (
	flagVideo        = "video"
	flagSquaresX     = "squares-x"
	flagSquaresY     = "squares-y"
	flagSquareLength = "square-length"
	flagMarkerLength = "marker-length"
	flagDictionary   = "dictionary"
	flagPolicy       = "policy"
	flagMinCorners   = "min-corners"
	flagMinMarkers   = "min-markers"
	flagMinViews     = "min-views"
	flagMaxRMS       = "max-rms"
	flagOutput       = "output"
	flagFormat       = "format"
	flagNoSave       = "no-save"
	flagDB           = "db"
	flagDebug        = "debug"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:  "calibrate",
		Usage: "estimate camera intrinsics from a ChArUco board video",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagVideo,
				Aliases: []string{"v"},
				Value:   cfg.VideoPath,
				Usage:   "calibration video `FILE`",
			},
			&cli.IntFlag{
				Name:  flagSquaresX,
				Value: cfg.BoardSquaresX,
				Usage: "board squares along x",
			},
			&cli.IntFlag{
				Name:  flagSquaresY,
				Value: cfg.BoardSquaresY,
				Usage: "board squares along y",
			},
			&cli.Float64Flag{
				Name:  flagSquareLength,
				Value: cfg.BoardSquareLength,
				Usage: "square side in meters",
			},
			&cli.Float64Flag{
				Name:  flagMarkerLength,
				Value: cfg.BoardMarkerLength,
				Usage: "marker side in meters",
			},
			&cli.StringFlag{
				Name:  flagDictionary,
				Value: cfg.BoardDictionary,
				Usage: "ArUco dictionary, e.g. DICT_6X6_250",
			},
			&cli.StringFlag{
				Name:  flagPolicy,
				Value: cfg.AcceptPolicy,
				Usage: "frame acceptance policy: min-corners or full-board",
			},
			&cli.IntFlag{
				Name:  flagMinCorners,
				Value: cfg.MinCorners,
				Usage: "min-corners accepts frames with more corners than this",
			},
			&cli.IntFlag{
				Name:  flagMinMarkers,
				Value: cfg.MinMarkers,
				Usage: "detected neighbour markers required per interpolated corner",
			},
			&cli.IntFlag{
				Name:  flagMinViews,
				Value: cfg.MinViews,
				Usage: "usable views required to solve",
			},
			&cli.Float64Flag{
				Name:  flagMaxRMS,
				Value: cfg.MaxRMS,
				Usage: "fail when the reprojection error exceeds this many pixels, 0 disables",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Value:   cfg.OutputPath,
				Usage:   "artifact `FILE`",
			},
			&cli.StringFlag{
				Name:  flagFormat,
				Usage: "artifact format: xml or json (default from the output extension)",
			},
			&cli.BoolFlag{
				Name:  flagNoSave,
				Usage: "do not write the artifact",
			},
			&cli.StringFlag{
				Name:  flagDB,
				Usage: "record the run in this history database `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Value: cfg.Debug,
				Usage: "enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			return runCalibrate(c, cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		// calibration failures exit through cli.Exit; anything else is a usage error
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}
