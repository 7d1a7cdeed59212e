package main

import (
	"context"
	"image"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/frames"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/util"
)

// source produces BGR frames into a slot until it is exhausted or ctx is done.
type source interface {
	Pump(ctx context.Context, slot *frames.Slot[gocv.Mat]) error
	Close() error
}

// openSource opens a webcam when arg is a device id and a frame directory otherwise.
func openSource(arg string, res images.Resolution, fps float64) (source, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return openWebcam(id, res)
	}
	files, err := util.LoadDirectoryImageFiles(arg)
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = 30
	}
	return &directory{files: files, size: res.Size(), interval: time.Duration(float64(time.Second) / fps)}, nil
}

type webcam struct {
	capture *gocv.VideoCapture
	id      int
}

func openWebcam(id int, res images.Resolution) (*webcam, error) {
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, errors.Wrapf(err, "open webcam %d", id)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(res.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(res.Height))
	return &webcam{capture: capture, id: id}, nil
}

func (w *webcam) Pump(ctx context.Context, slot *frames.Slot[gocv.Mat]) error {
	for ctx.Err() == nil {
		img := gocv.NewMat()
		if ok := w.capture.Read(&img); !ok {
			img.Close()
			return errors.Errorf("cannot read device %d", w.id)
		}
		if img.Empty() {
			img.Close()
			continue
		}
		slot.Publish(img)
	}
	return nil
}

func (w *webcam) Close() error {
	return w.capture.Close()
}

// directory replays decoded frames at a fixed rate, looping at the end.
type directory struct {
	files    []util.ImageFile
	size     image.Point
	interval time.Duration
}

func (d *directory) Pump(ctx context.Context, slot *frames.Slot[gocv.Mat]) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(d.files) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		img, err := d.files[i].Decode()
		if err != nil {
			return err
		}
		if img.Cols() != d.size.X || img.Rows() != d.size.Y {
			scaled := gocv.NewMat()
			gocv.Resize(img, &scaled, d.size, 0, 0, gocv.InterpolationArea)
			img.Close()
			img = scaled
		}
		slot.Publish(img)
	}
}

func (d *directory) Close() error {
	return nil
}
