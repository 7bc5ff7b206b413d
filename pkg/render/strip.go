package render

import (
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// StripEmbeddedOverlays clears the bits of each sample that carry embedded
// overlays. Only bits below min(BitsStored, lowest overlay bit position)
// survive; signed samples are sign-extended from that width. Returns the
// input Unchanged when there is nothing to strip or BitsAllocated <= 8.
func StripEmbeddedOverlays(m *raster.Matrix, desc *pixel.Descriptor, frameIndex int) (*raster.Matrix, raster.Status) {
	if len(desc.EmbeddedOverlayBits) == 0 || desc.BitsAllocated <= 8 || desc.Float {
		return m, raster.Unchanged
	}
	keep := desc.BitsStored
	for _, b := range desc.EmbeddedOverlayBits {
		if b.BitPosition >= 0 && b.BitPosition < keep {
			keep = b.BitPosition
		}
	}
	if keep <= 0 || keep > 32 {
		return m, raster.Unchanged
	}
	mask := uint32(1)<<uint(keep) - 1
	sign := uint32(1) << uint(keep-1)

	out := m.Like(m.Type)
	for i, v := range m.Data {
		bits := uint32(int64(v)) & mask
		if desc.Signed && bits&sign != 0 {
			out.Data[i] = float64(int64(bits) - int64(mask) - 1)
			continue
		}
		out.Data[i] = float64(bits)
	}
	return out, raster.Replaced
}
