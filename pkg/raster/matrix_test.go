package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Invalid(t *testing.T) {
	_, err := New(0, 4, 1, TypeU8)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(4, 4, 2, TypeU8)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSet_ClampsToType(t *testing.T) {
	tests := []struct {
		typ  Type
		in   float64
		want float64
	}{
		{TypeU8, 300, 255},
		{TypeU8, -4, 0},
		{TypeU8, 12.6, 13},
		{TypeU16, 70000, 65535},
		{TypeS16, -40000, -32768},
		{TypeS16, -1024.4, -1024},
		{TypeF64, -1024.4, -1024.4},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			m, err := New(1, 1, 1, tt.typ)
			require.NoError(t, err)
			m.Set(0, 0, 0, tt.in)
			assert.Equal(t, tt.want, m.At(0, 0, 0))
		})
	}
}

func TestAt_OutOfRange(t *testing.T) {
	m, err := New(2, 2, 1, TypeU8)
	require.NoError(t, err)
	m.Set(5, 5, 0, 9) // ignored
	assert.Equal(t, 0.0, m.At(5, 5, 0))
	assert.Equal(t, 0.0, m.At(-1, 0, 0))
}

func TestIntegerTypeFor(t *testing.T) {
	typ, ok := IntegerTypeFor(0, 255)
	assert.True(t, ok)
	assert.Equal(t, TypeU8, typ)

	typ, ok = IntegerTypeFor(0, 4095)
	assert.True(t, ok)
	assert.Equal(t, TypeU16, typ)

	typ, ok = IntegerTypeFor(-1024, 3071)
	assert.True(t, ok)
	assert.Equal(t, TypeS16, typ)

	_, ok = IntegerTypeFor(-40000, 0)
	assert.False(t, ok)
}

func TestSubRegionAndFill(t *testing.T) {
	m, err := New(4, 3, 1, TypeU16)
	require.NoError(t, err)
	for i := range m.Data {
		m.Data[i] = float64(i)
	}

	sub, err := m.SubRegion(image.Rect(1, 1, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Width)
	assert.Equal(t, 2, sub.Height)
	assert.Equal(t, []float64{5, 6, 9, 10}, sub.Data)

	_, err = m.SubRegion(image.Rect(10, 10, 12, 12))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	m.Fill(image.Rect(2, 0, 10, 1), 7)
	assert.Equal(t, []float64{0, 1, 7, 7}, m.Data[:4])
}

func TestImageRoundTrip(t *testing.T) {
	m, err := New(2, 1, 1, TypeS16)
	require.NoError(t, err)
	m.Set(0, 0, 0, -1)
	m.Set(1, 0, 0, 100)

	img, err := m.Image()
	require.NoError(t, err)
	g, ok := img.(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, color.Gray16{Y: 0xFFFF}, g.Gray16At(0, 0))

	back, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, TypeU16, back.Type)
	assert.Equal(t, []float64{65535, 100}, back.Data)

	f, err := New(1, 1, 1, TypeF32)
	require.NoError(t, err)
	_, err = f.Image()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestFromImage_RGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	m, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Channels)
	assert.Equal(t, []float64{10, 20, 30}, m.Data)
}
