package render

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/opt"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// ErrInvalidWindow is returned for a window that cannot be applied
var ErrInvalidWindow = errors.New("render: invalid window")

// LutShape selects the VOI transfer curve
type LutShape int

const (
	ShapeLinear LutShape = iota
	ShapeSigmoid
	ShapeLog
	ShapeLogInv
)

var shapeNames = []string{"LINEAR", "SIGMOID", "LOG", "LOG_INV"}

func (s LutShape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("LutShape(%d)", int(s))
}

// ParseLutShape accepts the shape names and the VOI LUT Function values
// LINEAR_EXACT and SIGMOID.
func ParseLutShape(s string) (LutShape, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LINEAR", "LINEAR_EXACT", "":
		return ShapeLinear, nil
	case "SIGMOID":
		return ShapeSigmoid, nil
	case "LOG":
		return ShapeLog, nil
	case "LOG_INV":
		return ShapeLogInv, nil
	}
	return ShapeLinear, fmt.Errorf("%w: unknown lut shape %q", ErrInvalidWindow, s)
}

// WindowLevelSetting controls the VOI stage. Every field is optional; unset
// fields fall back to the dataset and then to pixel statistics.
type WindowLevelSetting struct {
	Center              opt.Value[float64]
	Width               opt.Value[float64]
	LutShape            opt.Value[LutShape]
	VoiLutIndex         opt.Value[int]
	ApplyPixelPadding   opt.Bool // default true
	InverseLut          opt.Bool // default false
	FillOutsideLutRange opt.Bool // default false
}

// WindowEstimator computes a default window from frame statistics. The
// returned center must lie within the sample range and width must be > 0.
type WindowEstimator interface {
	Estimate(m *raster.Matrix, desc *pixel.Descriptor, frameIndex int) (center, width float64)
}

// MinMaxEstimator windows the full range of non-padding samples
type MinMaxEstimator struct{}

func (MinMaxEstimator) Estimate(m *raster.Matrix, desc *pixel.Descriptor, frameIndex int) (float64, float64) {
	isPad := paddingTest(desc, frameIndex, m)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Data {
		if math.IsNaN(v) || isPad(v) {
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = m.MinMax()
	}
	if math.IsInf(lo, 0) || math.IsNaN(lo) {
		return 0, 1
	}
	width := hi - lo
	if width <= 0 {
		width = 1
	}
	return lo + (hi-lo)/2, width
}

// ApplyVOI maps a rescaled frame to 8-bit display values. Grayscale frames
// are windowed; color frames are converted to RGB and scaled to 8 bits.
func ApplyVOI(m *raster.Matrix, desc *pixel.Descriptor, setting WindowLevelSetting, frameIndex int, estimator WindowEstimator) (*raster.Matrix, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil frame", raster.ErrInvalidParameter)
	}
	if m.Channels == 3 || (desc.IsColor() && !m.Type.IsFloat()) {
		return toRGB8(m, desc)
	}
	if estimator == nil {
		estimator = MinMaxEstimator{}
	}

	inverse := setting.InverseLut.Or(false) != (desc.Photometric == pixel.Monochrome1)
	fill := setting.FillOutsideLutRange.Or(false)
	isPad := func(float64) bool { return false }
	if setting.ApplyPixelPadding.Or(true) {
		isPad = paddingTest(desc, frameIndex, m)
	}

	var curve func(float64) float64
	if lut, ok := selectLUT(desc, setting); ok && !setting.Center.IsSet() {
		maxOut := float64(max(lut.MaxOutput(), 1))
		curve = func(v float64) float64 { return float64(lut.Lookup(v)) * 255 / maxOut }
		slog.Debug("voi lut", slog.String("explanation", lut.Explanation), slog.Int("frame", frameIndex))
	} else {
		center, width, shape := selectWindow(m, desc, setting, frameIndex, estimator)
		if width <= 0 || math.IsNaN(width) || math.IsNaN(center) {
			return nil, fmt.Errorf("%w: center %v width %v", ErrInvalidWindow, center, width)
		}
		curve = windowCurve(shape, center, width, fill)
		slog.Debug("voi window",
			slog.Float64("center", center),
			slog.Float64("width", width),
			slog.String("shape", shape.String()),
			slog.Int("frame", frameIndex))
	}

	out := m.Like(raster.TypeU8)
	for i, v := range m.Data {
		if isPad(v) {
			out.Data[i] = 0
			continue
		}
		y := curve(v)
		if inverse {
			y = 255 - y
		}
		out.Data[i] = raster.TypeU8.Clamp(y)
	}
	return out, nil
}

func selectLUT(desc *pixel.Descriptor, setting WindowLevelSetting) (pixel.LUT, bool) {
	idx, ok := setting.VoiLutIndex.Get()
	if ok && idx >= 0 && idx < len(desc.VOILUTs) {
		return desc.VOILUTs[idx], true
	}
	if !ok && len(desc.Windows) == 0 && len(desc.VOILUTs) > 0 {
		return desc.VOILUTs[0], true
	}
	return pixel.LUT{}, false
}

func selectWindow(m *raster.Matrix, desc *pixel.Descriptor, setting WindowLevelSetting, frameIndex int, estimator WindowEstimator) (float64, float64, LutShape) {
	shape, shapeSet := setting.LutShape.Get()
	c, cok := setting.Center.Get()
	w, wok := setting.Width.Get()
	if cok && wok {
		return c, w, shape
	}
	if windows := desc.WindowsFor(frameIndex); len(windows) > 0 {
		idx := setting.VoiLutIndex.Or(0)
		if idx < 0 || idx >= len(windows) {
			idx = 0
		}
		win := windows[idx]
		if !shapeSet {
			if s, err := ParseLutShape(win.Function); err == nil {
				shape = s
			}
		}
		return win.Center, win.Width, shape
	}
	c, w = estimator.Estimate(m, desc, frameIndex)
	return c, w, shape
}

// windowCurve returns the transfer function of a window, mapping into 0..255
func windowCurve(shape LutShape, center, width float64, fill bool) func(float64) float64 {
	lower, upper := center-width/2, center+width/2
	norm := func(v float64) float64 {
		return math.Max(0, math.Min(1, (v-lower)/width))
	}
	outside := func(v float64) (float64, bool) {
		switch {
		case v <= lower:
			return 0, true
		case v >= upper:
			return 255, true
		}
		return 0, false
	}
	switch shape {
	case ShapeSigmoid:
		return func(v float64) float64 {
			if fill {
				if y, ok := outside(v); ok {
					return y
				}
			}
			return 255 / (1 + math.Exp(-4*(v-center)/width))
		}
	case ShapeLog:
		return func(v float64) float64 {
			return 255 * math.Log10(1+9*norm(v))
		}
	case ShapeLogInv:
		return func(v float64) float64 {
			return 255 * (math.Pow(10, norm(v)) - 1) / 9
		}
	}
	// DICOM PS3.3 C.11.2.1.2.1
	return func(v float64) float64 {
		if width <= 1 {
			if v < center-0.5 {
				return 0
			}
			return 255
		}
		switch {
		case v <= center-0.5-(width-1)/2:
			return 0
		case v > center-0.5+(width-1)/2:
			return 255
		}
		return ((v-(center-0.5))/(width-1) + 0.5) * 255
	}
}

// paddingTest reports padding on rescaled values. The padding attributes are
// stored values, so they go through the frame's rescale unless the frame was
// stored as float and never rescaled.
func paddingTest(desc *pixel.Descriptor, frameIndex int, m *raster.Matrix) func(float64) bool {
	pad, ok := desc.PaddingValue.Get()
	if !ok {
		return func(float64) bool { return false }
	}
	limit := desc.PaddingRangeLimit.Or(pad)
	slope, intercept := 1.0, 0.0
	if !desc.Float && m.Channels == 1 {
		slope, intercept = desc.RescaleFor(frameIndex)
	}
	a, b := pad*slope+intercept, limit*slope+intercept
	lo, hi := min(a, b), max(a, b)
	return func(v float64) bool { return v >= lo && v <= hi }
}
