package images

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/nvr-ai/go-bgseg/errs"
)

// ResolutionType is the short name of a capture resolution.
type ResolutionType string

// Capture resolutions commonly offered by webcams.
const (
	ResolutionTypeNHD     ResolutionType = "360p"
	ResolutionTypeVGA     ResolutionType = "480p"
	ResolutionTypeQHD540  ResolutionType = "540p"
	ResolutionTypeHD720p  ResolutionType = "720p"
	ResolutionTypeFHD1080 ResolutionType = "1080p"
)

// Resolution is a named capture size.
type Resolution struct {
	Name   ResolutionType `json:"name"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
}

// Size returns the resolution as an image.Point (X=width, Y=height).
func (r Resolution) Size() image.Point {
	return image.Pt(r.Width, r.Height)
}

// String returns "name (WxH)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", r.Name, r.Width, r.Height)
}

var resolutions = []Resolution{
	{Name: ResolutionTypeNHD, Width: 640, Height: 360},
	{Name: ResolutionTypeVGA, Width: 640, Height: 480},
	{Name: ResolutionTypeQHD540, Width: 960, Height: 540},
	{Name: ResolutionTypeHD720p, Width: 1280, Height: 720},
	{Name: ResolutionTypeFHD1080, Width: 1920, Height: 1080},
}

// GetAllResolutions returns a copy of the capture resolution table, smallest first.
func GetAllResolutions() []Resolution {
	return append([]Resolution(nil), resolutions...)
}

// ParseResolution resolves a named resolution ("720p") or an explicit "WIDTHxHEIGHT".
//
// Arguments:
//   - s: The resolution string. Matching is case-insensitive.
//
// Returns:
//   - Resolution: The matching or parsed resolution.
//   - error: A configuration error if s is neither a known name nor a valid size.
//
// @example
//
//	res, err := ParseResolution("1280x720")
func ParseResolution(s string) (Resolution, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if r, ok := lo.Find(resolutions, func(r Resolution) bool { return string(r.Name) == s }); ok {
		return r, nil
	}

	w, h, found := strings.Cut(s, "x")
	if !found {
		return Resolution{}, errs.Configurationf("images.resolution", "unknown resolution %q", s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return Resolution{}, errs.Configurationf("images.resolution", "invalid size %q", s)
	}
	return Resolution{Name: ResolutionType(s), Width: width, Height: height}, nil
}
