// Package test - Shared fixtures for pipeline tests: synthetic webcam frames and a
// scriptable in-memory inference engine.
package test

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MockFrameGenerator creates deterministic BGR test frames.
//
// @example
// gen := NewMockFrameGenerator(640, 480)
// frame := gen.GenerateStaticFrame()
// defer frame.Close()
type MockFrameGenerator struct {
	width  int
	height int
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
//   - width: Frame width in pixels.
//   - height: Frame height in pixels.
//
// Returns:
//   - *MockFrameGenerator: The generator.
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{width: width, height: height}
}

// GenerateStaticFrame creates a uniform mid-gray 8-bit BGR frame.
func (g *MockFrameGenerator) GenerateStaticFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), g.height, g.width, gocv.MatTypeCV8UC3)
}

// GeneratePersonFrame draws a bright "person" block on the static background.
//
// Arguments:
//   - x, y: Top-left corner of the block.
//   - size: Side length in pixels.
//
// Returns:
//   - gocv.Mat: The frame. The caller closes it.
func (g *MockFrameGenerator) GeneratePersonFrame(x, y, size int) gocv.Mat {
	frame := g.GenerateStaticFrame()
	gocv.Rectangle(&frame, image.Rect(x, y, x+size, y+size), color.RGBA{R: 230, G: 190, B: 160, A: 0}, -1)
	return frame
}

// GenerateSequence returns n frames with the block moving step pixels right per frame.
func (g *MockFrameGenerator) GenerateSequence(n, size, step int) []gocv.Mat {
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = g.GeneratePersonFrame((i*step)%g.width, g.height/4, size)
	}
	return frames
}

// CloseAll closes every Mat.
func CloseAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
