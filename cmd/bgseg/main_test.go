package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/frames"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/test"
)

func cliContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("bgseg", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("model", "", "")
	set.String("backend", "", "")
	set.Int("threads", 0, "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadSettingsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := config.Default()
	s.Threshold = 0.4
	require.NoError(t, config.Save(path, s))

	got, err := loadSettings(cliContext(t, "--config", path, "--model", "rvm_mobilenetv3_fp32", "--threads", "4"))
	require.NoError(t, err)
	assert.Equal(t, "rvm_mobilenetv3_fp32", got.Model)
	assert.Equal(t, 4, got.NumThreads)
	assert.InDelta(t, 0.4, got.Threshold, 1e-9)
	assert.Equal(t, s.UseGpu, got.UseGpu)
}

func TestLoadSettingsInvalidOverride(t *testing.T) {
	_, err := loadSettings(cliContext(t, "--backend", "quantum"))
	assert.Error(t, err)
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	frame := test.NewMockFrameGenerator(64, 48).GenerateStaticFrame()
	defer frame.Close()
	buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
	require.NoError(t, err)
	defer buf.Close()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.png"), buf.GetBytes(), 0o600))

	res, err := images.ParseResolution("32x24")
	require.NoError(t, err)
	src, err := openSource(dir, res, 200)
	require.NoError(t, err)
	defer src.Close()

	slot := frames.NewSlot(func(m gocv.Mat) { _ = m.Close() })
	defer slot.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Pump(ctx, slot) }()

	var got gocv.Mat
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = slot.TryTake()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	defer got.Close()

	assert.Equal(t, 32, got.Cols())
	assert.Equal(t, 24, got.Rows())
}

func TestOpenSourceMissingDirectory(t *testing.T) {
	res, err := images.ParseResolution("720p")
	require.NoError(t, err)
	_, err = openSource(filepath.Join(t.TempDir(), "nope"), res, 30)
	assert.Error(t, err)
}
