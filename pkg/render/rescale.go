package render

import (
	"log/slog"
	"math"

	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// Rescale applies the modality LUT (value*slope + intercept) to a
// grayscale frame. Frames stored as float, color frames and identity
// rescales on frames the policy does not promote come back Unchanged (same
// pointer). 32-bit integer frames load into a 64F matrix but are still
// rescaled.
//
// Output is floating point when |slope| < 0.5, slope < 0, or the policy
// forces it for the series; otherwise the smallest integer type holding the
// rescaled BitsStored range, falling back to 32F when none can.
func Rescale(m *raster.Matrix, desc *pixel.Descriptor, frameIndex int, policy *FloatPolicy) (*raster.Matrix, raster.Status) {
	if desc.Float || m.Channels != 1 || desc.Photometric == pixel.PaletteColor {
		return m, raster.Unchanged
	}
	slope, intercept := desc.RescaleFor(frameIndex)
	toFloat := math.Abs(slope) < 0.5 || slope < 0 || policy.Forced(desc.SeriesInstanceUID)
	if !toFloat && slope == 1 && intercept == 0 {
		return m, raster.Unchanged
	}

	outType := raster.TypeF32
	if !toFloat {
		lo, hi := desc.StoredRange()
		a, b := lo*slope+intercept, hi*slope+intercept
		if t, ok := raster.IntegerTypeFor(math.Floor(min(a, b)), math.Ceil(max(a, b))); ok {
			outType = t
		}
	}
	slog.Debug("modality rescale",
		slog.Float64("slope", slope),
		slog.Float64("intercept", intercept),
		slog.String("type", outType.String()),
		slog.Int("frame", frameIndex))

	out := m.Like(outType)
	for i, v := range m.Data {
		out.Data[i] = outType.Clamp(v*slope + intercept)
	}
	return out, raster.Replaced
}
