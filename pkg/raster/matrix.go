// Package raster provides the typed 2D pixel buffer shared by the rendering
// and transcoding stages.
//
// A Matrix stores interleaved samples (row-major, channel fastest) together
// with a sample Type tag. Values written through Set are clamped and rounded
// to what the tagged type can hold, so a Matrix always contains exactly the
// values an encoder of that type would see.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// ErrInvalidParameter reports degenerate dimensions or an empty input
var ErrInvalidParameter = errors.New("raster: invalid parameter")

// Type is the sample type of a Matrix
type Type int

const (
	TypeU8 Type = iota
	TypeU16
	TypeS16
	TypeF32
	TypeF64
)

func (t Type) String() string {
	switch t {
	case TypeU8:
		return "8U"
	case TypeU16:
		return "16U"
	case TypeS16:
		return "16S"
	case TypeF32:
		return "32F"
	case TypeF64:
		return "64F"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsFloat reports whether samples are floating point
func (t Type) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// Signed reports whether the type can hold negative values
func (t Type) Signed() bool {
	return t != TypeU8 && t != TypeU16
}

// Bits returns the storage size of one sample
func (t Type) Bits() int {
	switch t {
	case TypeU8:
		return 8
	case TypeU16, TypeS16:
		return 16
	case TypeF32:
		return 32
	default:
		return 64
	}
}

// Range returns the representable value range of the type
func (t Type) Range() (lo, hi float64) {
	switch t {
	case TypeU8:
		return 0, math.MaxUint8
	case TypeU16:
		return 0, math.MaxUint16
	case TypeS16:
		return math.MinInt16, math.MaxInt16
	case TypeF32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// IntegerTypeFor returns the smallest integer type holding [lo, hi], or false
// when no 8/16-bit type can.
func IntegerTypeFor(lo, hi float64) (Type, bool) {
	switch {
	case lo >= 0 && hi <= math.MaxUint8:
		return TypeU8, true
	case lo >= 0 && hi <= math.MaxUint16:
		return TypeU16, true
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return TypeS16, true
	}
	return 0, false
}

// Status tells a caller whether a stage produced a new matrix or handed back
// its input untouched.
type Status int

const (
	Unchanged Status = iota
	Replaced
)

func (s Status) String() string {
	if s == Replaced {
		return "replaced"
	}
	return "unchanged"
}

// Matrix is a width x height buffer of interleaved samples
type Matrix struct {
	Width    int
	Height   int
	Channels int
	Type     Type
	Data     []float64
}

// New allocates a zeroed matrix
func New(width, height, channels int, t Type) (*Matrix, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidParameter, width, height)
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidParameter, channels)
	}
	return &Matrix{
		Width:    width,
		Height:   height,
		Channels: channels,
		Type:     t,
		Data:     make([]float64, width*height*channels),
	}, nil
}

// Like allocates a zeroed matrix with the dimensions of m and type t
func (m *Matrix) Like(t Type) *Matrix {
	return &Matrix{
		Width:    m.Width,
		Height:   m.Height,
		Channels: m.Channels,
		Type:     t,
		Data:     make([]float64, len(m.Data)),
	}
}

// Bounds returns the matrix rectangle anchored at the origin
func (m *Matrix) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At returns sample c of pixel (x, y); out of range reads return 0
func (m *Matrix) At(x, y, c int) float64 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height || c < 0 || c >= m.Channels {
		return 0
	}
	return m.Data[(y*m.Width+x)*m.Channels+c]
}

// Set stores sample c of pixel (x, y) after clamping to the type
func (m *Matrix) Set(x, y, c int, v float64) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height || c < 0 || c >= m.Channels {
		return
	}
	m.Data[(y*m.Width+x)*m.Channels+c] = m.Type.Clamp(v)
}

// Clamp rounds and saturates v to the type
func (t Type) Clamp(v float64) float64 {
	switch t {
	case TypeF64:
		return v
	case TypeF32:
		return float64(float32(v))
	}
	if math.IsNaN(v) {
		return 0
	}
	lo, hi := t.Range()
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	out := m.Like(m.Type)
	copy(out.Data, m.Data)
	return out
}

// Convert returns a copy of m with samples clamped to t
func (m *Matrix) Convert(t Type) *Matrix {
	out := m.Like(t)
	for i, v := range m.Data {
		out.Data[i] = t.Clamp(v)
	}
	return out
}

// SubRegion copies the part of m inside r (clipped to the bounds)
func (m *Matrix) SubRegion(r image.Rectangle) (*Matrix, error) {
	r = r.Intersect(m.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: region %v outside %v", ErrInvalidParameter, r, m.Bounds())
	}
	out, err := New(r.Dx(), r.Dy(), m.Channels, m.Type)
	if err != nil {
		return nil, err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := (y*m.Width + r.Min.X) * m.Channels
		dst := (y - r.Min.Y) * out.Width * m.Channels
		copy(out.Data[dst:dst+out.Width*m.Channels], m.Data[src:src+out.Width*m.Channels])
	}
	return out, nil
}

// Fill sets every pixel inside r (clipped) to the given per-channel values.
// A single value is replicated across channels.
func (m *Matrix) Fill(r image.Rectangle, values ...float64) {
	r = r.Intersect(m.Bounds())
	if r.Empty() || len(values) == 0 {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			for c := 0; c < m.Channels; c++ {
				v := values[0]
				if c < len(values) {
					v = values[c]
				}
				m.Set(x, y, c, v)
			}
		}
	}
}

// MinMax returns the smallest and largest sample over all channels
func (m *Matrix) MinMax() (lo, hi float64) {
	if len(m.Data) == 0 {
		return 0, 0
	}
	lo, hi = m.Data[0], m.Data[0]
	for _, v := range m.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Image converts an integer matrix to an image.Image without rescaling.
// 8U maps to Gray or RGBA, 16U/16S to Gray16 (16S as its two's complement
// bit pattern). Float matrices have no lossless image form.
func (m *Matrix) Image() (image.Image, error) {
	r := m.Bounds()
	switch {
	case m.Type == TypeU8 && m.Channels == 1:
		img := image.NewGray(r)
		for i, v := range m.Data {
			img.Pix[i] = uint8(v)
		}
		return img, nil
	case m.Type == TypeU8 && m.Channels == 3:
		img := image.NewRGBA(r)
		for p := 0; p < m.Width*m.Height; p++ {
			img.Pix[p*4] = uint8(m.Data[p*3])
			img.Pix[p*4+1] = uint8(m.Data[p*3+1])
			img.Pix[p*4+2] = uint8(m.Data[p*3+2])
			img.Pix[p*4+3] = 0xFF
		}
		return img, nil
	case (m.Type == TypeU16 || m.Type == TypeS16) && m.Channels == 1:
		img := image.NewGray16(r)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16(int32(m.Data[y*m.Width+x]))})
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: no image form for %d-channel %s", ErrInvalidParameter, m.Channels, m.Type)
}

// FromImage converts a decoded image into a matrix. Gray maps to 8U,
// Gray16 to 16U and anything else to 3-channel 8U RGB.
func FromImage(img image.Image) (*Matrix, error) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		m, err := New(b.Dx(), b.Dy(), 1, TypeU8)
		if err != nil {
			return nil, err
		}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Data[y*m.Width+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return m, nil
	case *image.Gray16:
		m, err := New(b.Dx(), b.Dy(), 1, TypeU16)
		if err != nil {
			return nil, err
		}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Data[y*m.Width+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return m, nil
	}
	m, err := New(b.Dx(), b.Dy(), 3, TypeU8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*m.Width + x) * 3
			m.Data[i] = float64(r >> 8)
			m.Data[i+1] = float64(g >> 8)
			m.Data[i+2] = float64(bl >> 8)
		}
	}
	return m, nil
}
