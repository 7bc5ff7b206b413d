// Package mask redacts rectangular regions of a frame before it is encoded.
// Regions are configured per acquisition station in YAML:
//
//	stations:
//	  "":            # any station
//	    rects: [{x: 0, y: 0, width: 512, height: 40}]
//	  CT_SCANNER_1:
//	    rects: [{x: 0, y: 0, width: 512, height: 64}]
//	    color: [0]
package mask

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/raster"
	"gopkg.in/yaml.v3"
)

// Wildcard is the station key that applies to any station
const Wildcard = ""

// Rect is a region in pixel coordinates
type Rect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Rectangle converts to an image.Rectangle
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Region lists the rectangles to fill and the fill value per channel.
// An empty Color fills with zero.
type Region struct {
	Rects []Rect    `yaml:"rects"`
	Color []float64 `yaml:"color,omitempty"`
}

// Spec maps station names to regions
type Spec struct {
	Stations map[string]Region `yaml:"stations"`
}

// Load reads a Spec from a YAML file
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mask file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML Spec; "*" is accepted as the wildcard key
func Parse(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse mask spec: %w", err)
	}
	if r, ok := s.Stations["*"]; ok {
		if _, dup := s.Stations[Wildcard]; !dup {
			s.Stations[Wildcard] = r
		}
		delete(s.Stations, "*")
	}
	for name, r := range s.Stations {
		for _, rect := range r.Rects {
			if rect.Width <= 0 || rect.Height <= 0 {
				return nil, fmt.Errorf("%w: station %q rect %+v", raster.ErrInvalidParameter, name, rect)
			}
		}
	}
	return &s, nil
}

// RegionFor returns the region of a station; a station entry wins over the
// wildcard. Station names compare without surrounding spaces.
func (s *Spec) RegionFor(station string) (Region, bool) {
	if s == nil {
		return Region{}, false
	}
	if r, ok := s.Stations[strings.TrimSpace(station)]; ok {
		return r, true
	}
	r, ok := s.Stations[Wildcard]
	return r, ok
}

// Apply fills the station's rectangles in a copy of m. Without a matching
// region m is returned Unchanged.
func Apply(m *raster.Matrix, s *Spec, station string) (*raster.Matrix, raster.Status) {
	r, ok := s.RegionFor(station)
	if !ok || len(r.Rects) == 0 {
		return m, raster.Unchanged
	}
	values := r.Color
	if len(values) == 0 {
		values = []float64{0}
	}
	out := m.Clone()
	for _, rect := range r.Rects {
		out.Fill(rect.Rectangle(), values...)
	}
	slog.Debug("masked frame", slog.String("station", station), slog.Int("rects", len(r.Rects)))
	return out, raster.Replaced
}
