package pixel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// MatrixType returns the raster type a stored frame is loaded into
func (d *Descriptor) MatrixType() raster.Type {
	switch {
	case d.Float && d.BitsAllocated == 64:
		return raster.TypeF64
	case d.Float:
		return raster.TypeF32
	case d.BitsAllocated > 16:
		return raster.TypeF64
	case d.Signed:
		return raster.TypeS16
	case d.BitsAllocated <= 8:
		return raster.TypeU8
	default:
		return raster.TypeU16
	}
}

// FrameSize is the byte length of one native frame
func (d *Descriptor) FrameSize() int {
	return d.Rows * d.Columns * d.SamplesPerPixel * ((d.BitsAllocated + 7) / 8)
}

// NativeFrame loads an uncompressed frame into a matrix of MatrixType.
// Stored values are kept as is, including bits that carry embedded
// overlays; without embedded overlays samples are masked to BitsStored.
func NativeFrame(ds *dcm.Dataset, d *Descriptor, frameIndex int) (*raster.Matrix, error) {
	if frameIndex < 0 || frameIndex >= d.NumFrames() {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrInvalidDescriptor, frameIndex, d.NumFrames())
	}
	if d.Float {
		return floatFrame(ds, d, frameIndex)
	}
	pd, ok := ds.PixelData()
	if !ok {
		return nil, fmt.Errorf("%w: no pixel data", ErrInvalidDescriptor)
	}
	if pd.IsEncapsulated {
		return nil, fmt.Errorf("%w: pixel data is encapsulated", ErrInvalidDescriptor)
	}
	data, err := sliceFrame(pd, d.FrameSize(), frameIndex)
	if err != nil {
		return nil, err
	}

	m, err := raster.New(d.Columns, d.Rows, d.SamplesPerPixel, d.MatrixType())
	if err != nil {
		return nil, err
	}
	bytesPer := (d.BitsAllocated + 7) / 8
	pixels := d.Rows * d.Columns
	for p := 0; p < pixels; p++ {
		for s := 0; s < d.SamplesPerPixel; s++ {
			pos := p*d.SamplesPerPixel + s
			if d.PlanarConfiguration == 1 && d.SamplesPerPixel > 1 {
				pos = s*pixels + p
			}
			off := pos * bytesPer
			var raw uint64
			switch bytesPer {
			case 1:
				raw = uint64(data[off])
			case 2:
				raw = uint64(binary.LittleEndian.Uint16(data[off:]))
			case 4:
				raw = uint64(binary.LittleEndian.Uint32(data[off:]))
			default:
				return nil, fmt.Errorf("%w: bits allocated %d", ErrInvalidDescriptor, d.BitsAllocated)
			}
			m.Data[p*d.SamplesPerPixel+s] = d.StoredValue(raw)
		}
	}
	return m, nil
}

// StoredValue turns a raw sample word into the value held in a matrix
func (d *Descriptor) StoredValue(raw uint64) float64 {
	width := d.BitsStored
	if len(d.EmbeddedOverlayBits) > 0 {
		width = d.BitsAllocated
	} else if shift := d.HighBit + 1 - d.BitsStored; shift > 0 && shift < 64 {
		raw >>= uint(shift)
	}
	if width <= 0 || width >= 64 {
		return float64(raw)
	}
	raw &= 1<<uint(width) - 1
	if d.Signed && raw&(1<<uint(width-1)) != 0 {
		return float64(int64(raw) - int64(1)<<uint(width))
	}
	return float64(raw)
}

// NormalizeDecoded maps the output of an image decoder (unsigned bit
// patterns) onto stored values, so decoded and native frames agree.
func NormalizeDecoded(m *raster.Matrix, d *Descriptor) *raster.Matrix {
	if m.Type.IsFloat() {
		return m
	}
	out := m.Like(d.MatrixType())
	if m.Channels != d.SamplesPerPixel {
		out = m.Like(m.Type)
	}
	for i, v := range m.Data {
		out.Data[i] = out.Type.Clamp(d.StoredValue(uint64(int64(v))))
	}
	return out
}

func sliceFrame(pd *dcm.PixelData, size, frameIndex int) ([]byte, error) {
	var data []byte
	switch {
	case frameIndex < len(pd.Frames) && len(pd.Frames) > 1:
		data = pd.Frames[frameIndex].Data
	case len(pd.Frames) == 1:
		start := frameIndex * size
		all := pd.Frames[0].Data
		if start+size > len(all) {
			return nil, fmt.Errorf("%w: frame %d beyond %d bytes of pixel data", ErrInvalidDescriptor, frameIndex, len(all))
		}
		data = all[start : start+size]
	default:
		return nil, fmt.Errorf("%w: frame %d missing", ErrInvalidDescriptor, frameIndex)
	}
	if len(data) < size {
		return nil, fmt.Errorf("%w: frame %d has %d bytes, want %d", ErrInvalidDescriptor, frameIndex, len(data), size)
	}
	return data, nil
}

func floatFrame(ds *dcm.Dataset, d *Descriptor, frameIndex int) (*raster.Matrix, error) {
	t := tag.FloatPixelData
	if d.BitsAllocated == 64 {
		t = tag.DoubleFloatPixelData
	}
	elem, ok := ds.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: no float pixel data", ErrInvalidDescriptor)
	}
	m, err := raster.New(d.Columns, d.Rows, d.SamplesPerPixel, d.MatrixType())
	if err != nil {
		return nil, err
	}
	n := len(m.Data)
	switch v := elem.Value.(type) {
	case []float64:
		if (frameIndex+1)*n > len(v) {
			return nil, fmt.Errorf("%w: float frame %d truncated", ErrInvalidDescriptor, frameIndex)
		}
		copy(m.Data, v[frameIndex*n:])
		return m, nil
	case *dcm.PixelData:
		data, err := sliceFrame(v, d.FrameSize(), frameIndex)
		if err != nil {
			return nil, err
		}
		decodeFloats(m.Data, data, d.BitsAllocated)
		return m, nil
	case []byte:
		pd := &dcm.PixelData{Frames: []dcm.Frame{{Data: v}}}
		data, err := sliceFrame(pd, d.FrameSize(), frameIndex)
		if err != nil {
			return nil, err
		}
		decodeFloats(m.Data, data, d.BitsAllocated)
		return m, nil
	}
	return nil, fmt.Errorf("%w: unexpected %T float pixel data", ErrInvalidDescriptor, elem.Value)
}

func decodeFloats(dst []float64, data []byte, bits int) {
	for i := range dst {
		if bits == 64 {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		} else {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
	}
}
