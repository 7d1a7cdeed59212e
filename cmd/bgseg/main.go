// Command bgseg runs the mask pipeline on a webcam or a directory of frames and shows the
// composited result.
package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/composite"
	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/filter"
	"github.com/nvr-ai/go-bgseg/frames"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/inference"
	"github.com/nvr-ai/go-bgseg/logger"
	"github.com/nvr-ai/go-bgseg/metrics"
	"github.com/nvr-ai/go-bgseg/profiler"
	"github.com/nvr-ai/go-bgseg/server"
	"github.com/nvr-ai/go-bgseg/util"
)

func main() {
	app := &cli.App{
		Name:  "bgseg",
		Usage: "live background segmentation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Value: "0", Usage: "webcam device id or a directory of frames"},
			&cli.StringFlag{Name: "resolution", Value: "720p", Usage: "capture resolution, a name such as 720p or WxH"},
			&cli.StringFlag{Name: "weights", Value: "models", Usage: "directory holding <model>.onnx files"},
			&cli.StringFlag{Name: "config", Usage: "settings file (yaml); reloaded on change"},
			&cli.StringFlag{Name: "model", Usage: "override the settings model"},
			&cli.StringFlag{Name: "backend", Usage: "override the settings backend (cpu, cuda, coreml, ...)"},
			&cli.IntFlag{Name: "threads", Usage: "override the settings thread count"},
			&cli.StringFlag{Name: "background", Usage: "background image; the frame is blurred or blacked out without one"},
			&cli.IntFlag{Name: "soften", Usage: "box radius in pixels applied to the upscaled mask edge"},
			&cli.StringFlag{Name: "listen", Value: ":8080", Usage: "control server address, empty to disable"},
			&cli.DurationFlag{Name: "profile-interval", Value: 10 * time.Second, Usage: "profile log interval, 0 to disable"},
			&cli.Float64Flag{Name: "fps", Value: 30, Usage: "playback rate for frame directories"},
			&cli.BoolFlag{Name: "headless", Usage: "do not open a window"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.BoolFlag{Name: "dev", Usage: "console logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level, err := zapcore.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	if c.Bool("dev") {
		err = logger.InitDevelopment()
	} else {
		err = logger.InitProduction(level)
	}
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log()

	res, err := images.ParseResolution(c.String("resolution"))
	if err != nil {
		return err
	}
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	factory, err := inference.NewEngineBuilder().
		WithWeights(util.DirectoryWeights(c.String("weights"))).
		WithLogger(log, level).
		Build()
	if err != nil {
		return err
	}

	m := metrics.New()
	prof := profiler.New(profiler.Options{Logger: log})
	session := filter.NewSession(factory,
		filter.WithLogger(log),
		filter.WithRecorder(filter.MultiRecorder{m, prof}))
	defer session.Close()

	if err := session.Apply(settings); err != nil {
		return err
	}

	comp := &composite.Compositor{Blur: settings.BlurBackground, Soften: c.Int("soften")}
	if path := c.String("background"); path != "" {
		if comp.Background, err = composite.LoadBackground(path); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := c.String("config"); path != "" {
		go func() {
			err := config.Watch(ctx, path, config.DefaultDebounce, log, func(next config.Settings) {
				next = overrides(c, next)
				if err := session.Apply(next); err != nil {
					log.Warn("reloaded settings rejected", zap.Error(err))
					return
				}
				log.Info("settings reloaded", zap.String("path", path))
			})
			if err != nil {
				log.Error("settings watcher stopped", zap.Error(err))
			}
		}()
	}

	if addr := c.String("listen"); addr != "" {
		srv := server.New(session, server.Options{Metrics: m.Handler(), Profiler: prof, Logger: log})
		go func() {
			if err := srv.Run(ctx, addr); err != nil {
				log.Error("control server stopped", zap.Error(err))
			}
		}()
	}

	if interval := c.Duration("profile-interval"); interval > 0 {
		go prof.Run(ctx, interval)
	}

	input := frames.NewSlot(func(m gocv.Mat) { _ = m.Close() })
	defer input.Close()
	output := frames.NewSlot[*image.RGBA](nil)

	src, err := openSource(c.String("source"), res, c.Float64("fps"))
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		if err := src.Pump(ctx, input); err != nil {
			log.Error("capture stopped", zap.Error(err))
		}
	}()
	go segment(ctx, session, comp, input, output, m)

	log.Info("pipeline started",
		zap.String("session", session.ID()),
		zap.Stringer("resolution", res),
		zap.String("model", string(session.Model())))

	if c.Bool("headless") {
		<-ctx.Done()
		return nil
	}
	show(ctx, output)
	return nil
}

// loadSettings reads the settings file when given and applies flag overrides.
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		s, err := config.Load(path)
		if err != nil {
			return settings, err
		}
		settings = s
	}
	settings = overrides(c, settings)
	return settings, settings.Validate()
}

func overrides(c *cli.Context, s config.Settings) config.Settings {
	if c.IsSet("model") {
		s.Model = c.String("model")
	}
	if c.IsSet("backend") {
		s.UseGpu = c.String("backend")
	}
	if c.IsSet("threads") {
		s.NumThreads = c.Int("threads")
	}
	return s
}

// segment ticks the session on the newest frame and publishes composited frames.
func segment(ctx context.Context, session *filter.Session, comp *composite.Compositor,
	input *frames.Slot[gocv.Mat], output *frames.Slot[*image.RGBA], m *metrics.Metrics) {
	log := logger.Log()
	for ctx.Err() == nil {
		frame, ok := input.TryTake()
		if !ok {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		m.SetDropped(input.Stats().Dropped)

		if _, err := session.Tick(frame); err != nil {
			log.Debug("tick failed", zap.Error(err))
		}
		comp.Blur = session.Settings().BlurBackground

		mask := session.Mask()
		if !mask.Empty() {
			out, err := comp.Blend(frame, mask)
			if err != nil {
				log.Warn("composite failed", zap.Error(err))
			} else {
				output.Publish(out)
			}
		}
		mask.Close()
		frame.Close()
	}
}

// show displays composited frames until the window is closed or ctx is done.
func show(ctx context.Context, output *frames.Slot[*image.RGBA]) {
	window := gocv.NewWindow("bgseg")
	defer window.Close()

	for ctx.Err() == nil {
		if img, ok := output.TryTake(); ok {
			mat, err := gocv.ImageToMatRGB(img)
			if err == nil {
				window.IMShow(mat)
				mat.Close()
			}
		}
		if window.WaitKey(1) == 27 || window.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
			return
		}
	}
}
