// Package overlay extracts DICOM overlay planes (groups 6000-601E) and paints
// them onto rendered frames.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// AllSlots activates every overlay slot
const AllSlots uint16 = 0xFFFF

// DefaultColor is used when no color is given
var DefaultColor color.Color = color.White

// Extract returns the overlay planes of ds whose slot bit is set in
// activationMask and that carry both dimensions and packed data. Slots
// without data are skipped.
func Extract(ds *dcm.Dataset, activationMask uint16) []pixel.OverlayPlane {
	return extract(ds, activationMask, false)
}

// ExtractPresentationOverlays is Extract restricted to planes that name an
// activation layer, which marks them as belonging to a presentation state.
func ExtractPresentationOverlays(ds *dcm.Dataset, activationMask uint16) []pixel.OverlayPlane {
	return extract(ds, activationMask, true)
}

func extract(ds *dcm.Dataset, activationMask uint16, presentation bool) []pixel.OverlayPlane {
	var planes []pixel.OverlayPlane
	for slot := 0; slot < tag.OverlaySlots; slot++ {
		if activationMask&(1<<uint(slot)) == 0 {
			continue
		}
		p, ok := pixel.ReadOverlayPlane(ds, slot)
		if !ok || !p.HasData() {
			continue
		}
		if presentation && !p.ActivationLayer.IsSet() {
			continue
		}
		if p.Truncated() {
			slog.Debug("overlay data shorter than declared plane",
				slog.Int("slot", slot),
				slog.Int("rows", p.Rows),
				slog.Int("columns", p.Columns),
				slog.Int("frames", p.FramesInOverlay),
				slog.Int("bytes", len(p.Data)))
		}
		planes = append(planes, p)
	}
	return planes
}

// Filter keeps the planes whose slot bit is set in activationMask
func Filter(planes []pixel.OverlayPlane, activationMask uint16) []pixel.OverlayPlane {
	var out []pixel.OverlayPlane
	for _, p := range planes {
		if p.Slot >= 0 && p.Slot < tag.OverlaySlots && activationMask&(1<<uint(p.Slot)) != 0 {
			out = append(out, p)
		}
	}
	return out
}

// Composite paints every set bit of the planes that apply to frameIndex
// (0-based) onto img. Paint coordinates outside img are dropped. When no
// plane applies img is returned Unchanged; otherwise a painted copy.
func Composite(img image.Image, planes []pixel.OverlayPlane, frameIndex int, c color.Color) (image.Image, raster.Status) {
	var active []pixel.OverlayPlane
	for _, p := range planes {
		if p.AppliesToFrame(frameIndex) {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return img, raster.Unchanged
	}
	if c == nil {
		c = DefaultColor
	}
	b := img.Bounds()
	dst := paintable(img, c)
	for _, p := range active {
		for row := 0; row < p.Rows; row++ {
			y := b.Min.Y + p.Origin[0] - 1 + row
			if y < b.Min.Y || y >= b.Max.Y {
				continue
			}
			for col := 0; col < p.Columns; col++ {
				x := b.Min.X + p.Origin[1] - 1 + col
				if x < b.Min.X || x >= b.Max.X {
					continue
				}
				if p.Bit(frameIndex, row, col) {
					dst.Set(x, y, c)
				}
			}
		}
	}
	return dst, raster.Replaced
}

// CompositeEmbedded paints planes recovered from the pixel samples of base
// (see EmbeddedPlanes) onto current. It returns current Unchanged unless the
// base and current images have the same width and height.
func CompositeEmbedded(base *raster.Matrix, current image.Image, planes []pixel.OverlayPlane, desc *pixel.Descriptor, frameIndex int, c color.Color) (image.Image, raster.Status) {
	if base == nil || len(planes) == 0 || len(desc.EmbeddedOverlayBits) == 0 {
		return current, raster.Unchanged
	}
	cb := current.Bounds()
	if base.Width != cb.Dx() || base.Height != cb.Dy() {
		slog.Debug("embedded overlay size mismatch",
			slog.Int("base_width", base.Width),
			slog.Int("base_height", base.Height),
			slog.Int("width", cb.Dx()),
			slog.Int("height", cb.Dy()))
		return current, raster.Unchanged
	}
	return Composite(current, planes, frameIndex, c)
}

// EmbeddedPlanes rebuilds packed overlay planes from the embedded bits of a
// raw (not yet stripped) single channel frame. Each plane applies only to
// frameIndex.
func EmbeddedPlanes(raw *raster.Matrix, desc *pixel.Descriptor, frameIndex int) []pixel.OverlayPlane {
	if raw == nil || raw.Channels != 1 || desc.Float {
		return nil
	}
	var planes []pixel.OverlayPlane
	for _, eb := range desc.EmbeddedOverlayBits {
		if eb.BitPosition < 0 || eb.BitPosition >= 32 {
			continue
		}
		p := eb.Plane
		rows, cols := min(p.Rows, raw.Height), min(p.Columns, raw.Width)
		p.Rows, p.Columns = rows, cols
		p.ImageFrameOrigin = frameIndex + 1
		p.FramesInOverlay = 1
		p.Data = make([]byte, (rows*cols+7)/8)
		bit := uint32(1) << uint(eb.BitPosition)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if uint32(int64(raw.Data[r*raw.Width+c]))&bit == 0 {
					continue
				}
				i := r*cols + c
				p.Data[i>>3] |= 1 << (uint(i) & 7)
			}
		}
		planes = append(planes, p)
	}
	return planes
}

// paintable copies img into an image that can be drawn on. Gray input stays
// gray when the paint color is gray.
func paintable(img image.Image, c color.Color) draw.Image {
	b := img.Bounds()
	if _, ok := img.(*image.Gray); ok && isGray(c) {
		dst := image.NewGray(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		return dst
	}
	if _, ok := img.(*image.Gray16); ok && isGray(c) {
		dst := image.NewGray16(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

func isGray(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == g && g == b
}
