// Package transcode re-encodes image instances under another transfer
// syntax, rewriting the pixel attributes to match what was written.
package transcode

import (
	"encoding/binary"
	"math"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// layout is the sample encoding a matrix is written with
type layout struct {
	allocated int
	stored    int
	signed    bool
	float     bool
}

// layoutOf keeps the stored layout when m still has the type the
// descriptor loads into, and derives it from the matrix type otherwise.
func layoutOf(m *raster.Matrix, desc *pixel.Descriptor) layout {
	same := desc != nil && m.Type == desc.MatrixType()
	switch {
	case same && !desc.Float:
		return layout{allocated: desc.BitsAllocated, stored: desc.BitsStored, signed: desc.Signed}
	case m.Type.IsFloat():
		return layout{allocated: m.Type.Bits(), stored: m.Type.Bits(), float: true}
	}
	return layout{allocated: m.Type.Bits(), stored: m.Type.Bits(), signed: m.Type.Signed()}
}

// AdaptAttributes rewrites the image pixel attributes of ds to describe m:
// Columns, Rows, SamplesPerPixel, BitsAllocated, BitsStored, HighBit and
// PixelRepresentation. Color matrices are written interleaved RGB. It must
// run before pixel data is written.
func AdaptAttributes(ds *dcm.Dataset, m *raster.Matrix, desc *pixel.Descriptor) {
	l := layoutOf(m, desc)
	ds.Set(tag.Columns, m.Width)
	ds.Set(tag.Rows, m.Height)
	ds.Set(tag.SamplesPerPixel, m.Channels)
	ds.Set(tag.BitsAllocated, l.allocated)
	if l.float {
		for _, t := range []tag.Tag{tag.BitsStored, tag.HighBit, tag.PixelRepresentation,
			tag.SmallestImagePixelValue, tag.LargestImagePixelValue,
			tag.PixelPaddingValue, tag.PixelPaddingRangeLimit} {
			ds.Delete(t)
		}
	} else {
		ds.Set(tag.BitsStored, l.stored)
		ds.Set(tag.HighBit, l.stored-1)
		rep := 0
		if l.signed {
			rep = 1
		}
		ds.Set(tag.PixelRepresentation, rep)
	}

	if m.Channels == 3 {
		ds.Set(tag.PhotometricInterpretation, string(pixel.RGB))
		ds.Set(tag.PlanarConfiguration, 0)
		return
	}
	ds.Delete(tag.PlanarConfiguration)
	photo := pixel.Photometric(ds.String(tag.PhotometricInterpretation))
	if !photo.IsMonochrome() && photo != pixel.PaletteColor {
		ds.Set(tag.PhotometricInterpretation, string(pixel.Monochrome2))
	}
}

// packNative serializes a matrix as little endian samples of l
func packNative(m *raster.Matrix, l layout) []byte {
	size := l.allocated / 8
	out := make([]byte, len(m.Data)*size)
	for i, v := range m.Data {
		b := out[i*size:]
		switch {
		case l.float && size == 8:
			binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		case l.float:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		case size == 1:
			b[0] = uint8(int64(v))
		case size == 2:
			binary.LittleEndian.PutUint16(b, uint16(int64(v)))
		default:
			binary.LittleEndian.PutUint32(b, uint32(int64(v)))
		}
	}
	return out
}
