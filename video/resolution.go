package video

import (
	"fmt"
	"math"
)

// Resolution is a named camera resolution standard.
type Resolution struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions lists the frame sizes commonly produced by surveillance cameras.
var resolutions = []Resolution{
	{Name: "nHD", Width: 640, Height: 360},
	{Name: "VGA", Width: 640, Height: 480},
	{Name: "FWVGA", Width: 854, Height: 480},
	{Name: "qHD 540p", Width: 960, Height: 540},
	{Name: "HD 720p", Width: 1280, Height: 720},
	{Name: "WXGA", Width: 1366, Height: 768},
	{Name: "HD+", Width: 1600, Height: 900},
	{Name: "1MP (5:4)", Width: 1280, Height: 1024},
	{Name: "Full HD 1080p", Width: 1920, Height: 1080},
	{Name: "2MP (4:3)", Width: 1600, Height: 1200},
	{Name: "QHD 1440p", Width: 2560, Height: 1440},
	{Name: "3MP (4:3)", Width: 2048, Height: 1536},
	{Name: "4MP (16:9)", Width: 2688, Height: 1520},
	{Name: "6MP (3:2)", Width: 3072, Height: 2048},
	{Name: "QHD+", Width: 3200, Height: 1800},
	{Name: "4K UHD", Width: 3840, Height: 2160},
	{Name: "12MP (4:3)", Width: 4000, Height: 3000},
	{Name: "5K", Width: 5120, Height: 2880},
	{Name: "8K UHD", Width: 7680, Height: 4320},
}

// LookupResolution returns the named standard with exactly the given size.
//
// Arguments:
//   - width: Frame width in pixels.
//   - height: Frame height in pixels.
//
// Returns:
//   - Resolution: The matching standard.
//   - bool: False when the size is not a known standard.
func LookupResolution(width, height int) (Resolution, bool) {
	for _, r := range resolutions {
		if r.Width == width && r.Height == height {
			return r, true
		}
	}
	return Resolution{}, false
}
