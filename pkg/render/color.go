package render

import (
	"fmt"
	"math"

	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// toRGB8 converts a color frame to interleaved 8-bit RGB
func toRGB8(m *raster.Matrix, desc *pixel.Descriptor) (*raster.Matrix, error) {
	if desc.Photometric == pixel.PaletteColor && m.Channels == 1 {
		return expandPalette(m, desc)
	}
	if m.Channels != 3 {
		return nil, fmt.Errorf("%w: %s frame with %d channels", raster.ErrInvalidParameter, desc.Photometric, m.Channels)
	}
	bits := desc.BitsStored
	if m.Type.IsFloat() {
		bits = 8
	}
	maxIn := float64(int64(1)<<min(bits, 32) - 1)
	half := float64(int64(1) << (min(bits, 32) - 1))

	out := m.Like(raster.TypeU8)
	for i := 0; i+2 < len(m.Data); i += 3 {
		r, g, b := m.Data[i], m.Data[i+1], m.Data[i+2]
		switch desc.Photometric {
		case pixel.YBRFull, pixel.YBRFull422, pixel.YBRICT:
			r, g, b = ybrFull(r, g, b, half)
		case pixel.YBRPartial422, pixel.YBRPartial420:
			r, g, b = ybrPartial(r, g, b, half, maxIn)
		case pixel.YBRRCT:
			r, g, b = ybrRCT(r, g, b, half)
		}
		out.Data[i] = raster.TypeU8.Clamp(r * 255 / maxIn)
		out.Data[i+1] = raster.TypeU8.Clamp(g * 255 / maxIn)
		out.Data[i+2] = raster.TypeU8.Clamp(b * 255 / maxIn)
	}
	return out, nil
}

// ybrFull is the ITU-R BT.601 full range inverse transform (PS3.3 C.7.6.3.1.2)
func ybrFull(y, cb, cr, half float64) (float64, float64, float64) {
	cb, cr = cb-half, cr-half
	return y + 1.402*cr,
		y - 0.344136*cb - 0.714136*cr,
		y + 1.772*cb
}

// ybrPartial expands the studio range (16..235, 16..240 at 8 bits) first
func ybrPartial(y, cb, cr, half, maxIn float64) (float64, float64, float64) {
	scale := (maxIn + 1) / 256
	y = (y - 16*scale) * 255 / 219
	cb = (cb-half)*255/224 + half
	cr = (cr-half)*255/224 + half
	return ybrFull(y, cb, cr, half)
}

// ybrRCT inverts the JPEG 2000 reversible color transform
func ybrRCT(y, cb, cr, half float64) (float64, float64, float64) {
	cb, cr = cb-half, cr-half
	g := y - math.Floor((cb+cr)/4)
	return cr + g, g, cb + g
}

func expandPalette(m *raster.Matrix, desc *pixel.Descriptor) (*raster.Matrix, error) {
	p := desc.Palette
	if p == nil {
		return nil, fmt.Errorf("%w: palette color without palette lut", raster.ErrInvalidParameter)
	}
	out, err := raster.New(m.Width, m.Height, 3, raster.TypeU8)
	if err != nil {
		return nil, err
	}
	luts := []pixel.LUT{p.Red, p.Green, p.Blue}
	for i, v := range m.Data {
		for c, lut := range luts {
			maxOut := float64(max(lut.MaxOutput(), 1))
			out.Data[i*3+c] = raster.TypeU8.Clamp(float64(lut.Lookup(v)) * 255 / maxOut)
		}
	}
	return out, nil
}
