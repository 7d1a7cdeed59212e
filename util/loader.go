// Package util - Loading of model weights and recorded frame sequences from disk.
package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from the file name, or -1 when it has none.
	Frame int
}

var frameNumber = regexp.MustCompile(`(\d+)$`)

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files are ordered by the trailing number in their base name ("frame-12.jpg" -> 12), and
// files without a number sort after numbered ones by name.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files in playback order.
//   - error: A configuration error if the directory cannot be read or holds no images.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Configuration("util.frames", err)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
			imgPath := filepath.Join(dir, file.Name())
			data, readErr := os.ReadFile(imgPath)
			if readErr != nil {
				return nil, errs.Configuration("util.frames", readErr)
			}
			frame := -1
			if m := frameNumber.FindString(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))); m != "" {
				frame, _ = strconv.Atoi(m)
			}
			images = append(images, ImageFile{
				Path:  imgPath,
				Data:  data,
				Frame: frame,
			})
		}
	}
	if len(images) == 0 {
		return nil, errs.Configurationf("util.frames", "no images in %s", dir)
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return b.Frame < 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return images, nil
}

// Decode decodes the file into a BGR Mat. The caller owns the result.
func (f ImageFile) Decode() (gocv.Mat, error) {
	mat, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errs.Data("util.decode", errors.Wrap(err, f.Path))
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errs.Dataf("util.decode", "%s: not a decodable image", f.Path)
	}
	return mat, nil
}
