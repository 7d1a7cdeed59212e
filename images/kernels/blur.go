// Package kernels - Separable sliding-window box blur for background and mask images.
package kernels

import (
	"image"
	"image/draw"
	"sync"
)

// EdgeMode defines how sampling behaves outside the image bounds.
type EdgeMode int

const (
	// EdgeClamp repeats edge pixels.
	EdgeClamp EdgeMode = iota
	// EdgeMirror reflects coordinates without duplicating the edge pixel.
	EdgeMirror
	// EdgeWrap tiles the image.
	EdgeWrap
)

// Options configures a blur call.
type Options struct {
	Radius   int      // Blur radius (window size = 2*Radius + 1). Must be >= 0.
	Edge     EdgeMode // Edge sampling mode.
	Pool     *Pool    // Optional buffer pool for the intermediate pass.
	Parallel bool     // Split rows/columns across goroutines.
}

// Pool reuses intermediate byte buffers between frames.
type Pool struct {
	bufs sync.Pool
}

// Get returns a buffer of length n.
func (p *Pool) Get(n int) []byte {
	if p == nil {
		return make([]byte, n)
	}
	if v := p.bufs.Get(); v != nil {
		if b := v.([]byte); cap(b) >= n {
			return b[:n]
		}
	}
	return make([]byte, n)
}

// Put returns a buffer to the pool.
func (p *Pool) Put(b []byte) {
	if p == nil || b == nil {
		return
	}
	p.bufs.Put(b[:0]) //nolint:staticcheck
}

// plane describes an interleaved 8-bit pixel buffer.
type plane struct {
	pix    []byte
	stride int
	w, h   int
	n      int // bytes per pixel
}

// BoxBlur applies a separable box blur and returns a new *image.RGBA.
//
// Arguments:
//   - src: Any image. *image.RGBA is read directly, other types are converted.
//   - opt: Blur options. Radius 0 returns a copy.
//
// Returns:
//   - *image.RGBA: The blurred image with the same bounds as src.
func BoxBlur(src image.Image, opt Options) *image.RGBA {
	in := toRGBA(src)
	dst := image.NewRGBA(in.Rect)
	blur(
		plane{pix: in.Pix, stride: in.Stride, w: in.Rect.Dx(), h: in.Rect.Dy(), n: 4},
		plane{pix: dst.Pix, stride: dst.Stride, w: dst.Rect.Dx(), h: dst.Rect.Dy(), n: 4},
		opt,
	)
	return dst
}

// BoxBlurGray applies a separable box blur to a grayscale mask.
//
// Arguments:
//   - src: The mask.
//   - opt: Blur options. Radius 0 returns a copy.
//
// Returns:
//   - *image.Gray: The blurred mask with the same bounds as src.
func BoxBlurGray(src *image.Gray, opt Options) *image.Gray {
	dst := image.NewGray(src.Rect)
	blur(
		plane{pix: src.Pix, stride: src.Stride, w: src.Rect.Dx(), h: src.Rect.Dy(), n: 1},
		plane{pix: dst.Pix, stride: dst.Stride, w: dst.Rect.Dx(), h: dst.Rect.Dy(), n: 1},
		opt,
	)
	return dst
}

func toRGBA(src image.Image) *image.RGBA {
	if r, ok := src.(*image.RGBA); ok {
		return r
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
	return dst
}

func blur(src, dst plane, opt Options) {
	if src.w == 0 || src.h == 0 {
		return
	}
	if opt.Radius <= 0 {
		for y := 0; y < src.h; y++ {
			copy(dst.pix[y*dst.stride:y*dst.stride+src.w*src.n], src.pix[y*src.stride:])
		}
		return
	}

	tmpBuf := opt.Pool.Get(src.w * src.h * src.n)
	defer opt.Pool.Put(tmpBuf)
	tmp := plane{pix: tmpBuf, stride: src.w * src.n, w: src.w, h: src.h, n: src.n}

	// Horizontal: lines are rows, samples step by n bytes.
	run(src.h, opt.Parallel, func(y int) {
		slide(src.pix[y*src.stride:], tmp.pix[y*tmp.stride:], src.w, src.n, src.n, src.n, opt.Radius, opt.Edge)
	})
	// Vertical: lines are columns, samples step by stride bytes.
	run(src.w, opt.Parallel, func(x int) {
		slide(tmp.pix[x*tmp.n:], dst.pix[x*dst.n:], tmp.h, tmp.n, tmp.stride, dst.stride, opt.Radius, opt.Edge)
	})
}

// slide blurs one line of length samples. srcStep and dstStep are the byte distances
// between consecutive samples.
func slide(src, dst []byte, length, n, srcStep, dstStep, r int, edge EdgeMode) {
	window := uint32(2*r + 1)
	var sums [4]uint32
	for d := -r; d <= r; d++ {
		off := mapCoord(d, length, edge) * srcStep
		for c := 0; c < n; c++ {
			sums[c] += uint32(src[off+c])
		}
	}
	for i := 0; i < length; i++ {
		out := i * dstStep
		for c := 0; c < n; c++ {
			dst[out+c] = uint8((sums[c] + window/2) / window)
		}
		left := mapCoord(i-r, length, edge) * srcStep
		right := mapCoord(i+r+1, length, edge) * srcStep
		for c := 0; c < n; c++ {
			sums[c] += uint32(src[right+c]) - uint32(src[left+c])
		}
	}
}

func run(n int, parallel bool, task func(i int)) {
	if !parallel || n < 4 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}
	chunk := chooseChunk(n)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// mapCoord maps an index i to [0, n) according to edge mode.
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}

func chooseChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}
