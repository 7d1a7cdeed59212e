// Command benchmark measures pipeline throughput for real models.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/benchmark"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/inference"
	"github.com/nvr-ai/go-bgseg/logger"
	"github.com/nvr-ai/go-bgseg/models"
	"github.com/nvr-ai/go-bgseg/util"
)

func main() {
	app := &cli.App{
		Name:  "benchmark",
		Usage: "measure mask pipeline throughput",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "weights", Value: "models", Usage: "directory holding <model>.onnx files"},
			&cli.StringFlag{Name: "output", Value: "./benchmark_results", Usage: "output directory for results"},
			&cli.StringFlag{Name: "scenarios", Usage: "scenario set file (yaml); overrides --set"},
			&cli.StringFlag{Name: "set", Value: "settings", Usage: "predefined set: resolutions, models or settings"},
			&cli.StringFlag{Name: "model", Value: "mediapipe"},
			&cli.StringFlag{Name: "resolution", Value: "720p"},
			&cli.StringFlag{Name: "images", Usage: "frame directory used instead of synthetic frames"},
			&cli.IntFlag{Name: "iterations", Value: 200},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Minute},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := logger.InitProduction(zapcore.InfoLevel); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log()

	set, err := scenarioSet(c)
	if err != nil {
		return err
	}

	factory, err := inference.NewEngineBuilder().
		WithWeights(util.DirectoryWeights(c.String("weights"))).
		WithLogger(log, zapcore.WarnLevel).
		Build()
	if err != nil {
		return err
	}

	args := benchmark.NewSuiteArgs{Factory: factory, OutputDir: c.String("output"), Logger: log}
	if dir := c.String("images"); dir != "" {
		files, err := util.LoadDirectoryImageFiles(dir)
		if err != nil {
			return err
		}
		args.Frames = directoryFrames(files)
	}

	suite := benchmark.NewSuite(args)
	for _, s := range set.Scenarios {
		suite.AddScenario(s)
	}
	log.Info("running scenarios", zap.String("set", set.Name), zap.Int("count", len(set.Scenarios)))

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()
	if err := suite.RunAllScenarios(ctx); err != nil {
		return err
	}

	files, err := suite.SaveResults()
	if err != nil {
		return err
	}
	log.Info("results saved", zap.Strings("files", files))
	return nil
}

func scenarioSet(c *cli.Context) (*benchmark.ScenarioSet, error) {
	if path := c.String("scenarios"); path != "" {
		return benchmark.LoadScenarioSet(path)
	}
	res, err := images.ParseResolution(c.String("resolution"))
	if err != nil {
		return nil, err
	}
	n := c.Int("iterations")
	switch c.String("set") {
	case "resolutions":
		return benchmark.ResolutionScenarios(c.String("model"), n), nil
	case "models":
		return benchmark.ModelScenarios(models.Names(), res, n), nil
	case "settings":
		return benchmark.SettingsScenarios(c.String("model"), res, n), nil
	default:
		return nil, fmt.Errorf("unknown scenario set %q", c.String("set"))
	}
}

// directoryFrames decodes recorded frames and scales them to the scenario resolution.
func directoryFrames(files []util.ImageFile) benchmark.FrameSource {
	return func(s benchmark.Scenario) ([]gocv.Mat, error) {
		out := make([]gocv.Mat, 0, len(files))
		for _, f := range files {
			img, err := f.Decode()
			if err != nil {
				for i := range out {
					out[i].Close()
				}
				return nil, err
			}
			scaled := gocv.NewMat()
			gocv.Resize(img, &scaled, s.Resolution.Size(), 0, 0, gocv.InterpolationArea)
			img.Close()
			out = append(out, scaled)
		}
		return out, nil
	}
}
