package pixel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(vals ...uint16) []byte {
	b := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b
}

func imageOpts(rows, cols, bitsAlloc, bitsStored, signed int) []dcm.Option {
	return []dcm.Option{
		dcm.WithElement(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.2"),
		dcm.WithElement(tag.SeriesInstanceUID, "1.2.3"),
		dcm.WithElement(tag.Rows, rows),
		dcm.WithElement(tag.Columns, cols),
		dcm.WithElement(tag.SamplesPerPixel, 1),
		dcm.WithElement(tag.PhotometricInterpretation, "MONOCHROME2"),
		dcm.WithElement(tag.BitsAllocated, bitsAlloc),
		dcm.WithElement(tag.BitsStored, bitsStored),
		dcm.WithElement(tag.HighBit, bitsStored-1),
		dcm.WithElement(tag.PixelRepresentation, signed),
	}
}

func TestNewDescriptor_Basics(t *testing.T) {
	opts := append(imageOpts(2, 3, 16, 12, 1),
		dcm.WithElement(tag.RescaleSlope, "2"),
		dcm.WithElement(tag.RescaleIntercept, "-1024"),
		dcm.WithElement(tag.WindowCenter, []string{"40", "300"}),
		dcm.WithElement(tag.WindowWidth, []string{"400", "1500"}),
		dcm.WithElement(tag.PixelPaddingValue, 0xF830), // -2000 as US
	)
	d, err := NewDescriptor(dcm.MustDataset(opts...))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Rows)
	assert.Equal(t, 3, d.Columns)
	assert.Equal(t, 1, d.NumFrames())
	assert.True(t, d.Signed)
	assert.Equal(t, Monochrome2, d.Photometric)
	assert.Equal(t, raster.TypeS16, d.MatrixType())
	slope, intercept := d.RescaleFor(0)
	assert.Equal(t, 2.0, slope)
	assert.Equal(t, -1024.0, intercept)
	require.Len(t, d.Windows, 2)
	assert.Equal(t, Window{Center: 300, Width: 1500}, d.Windows[1])
	pad, ok := d.PaddingValue.Get()
	require.True(t, ok)
	assert.Equal(t, -2000.0, pad)
	assert.False(t, d.PaddingRangeLimit.IsSet())
}

func TestNewDescriptor_Invalid(t *testing.T) {
	_, err := NewDescriptor(dcm.MustDataset(dcm.WithElement(tag.BitsAllocated, 16)))
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	_, err = NewDescriptor(dcm.MustDataset(imageOpts(2, 2, 0, 0, 0)...))
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestNewDescriptor_PerFrameRescale(t *testing.T) {
	pvt := func(slope string) *dcm.Dataset {
		return dcm.MustDataset(dcm.WithSequence(tag.PixelValueTransformation,
			dcm.MustDataset(dcm.WithElement(tag.RescaleSlope, slope), dcm.WithElement(tag.RescaleIntercept, "0"))))
	}
	opts := append(imageOpts(1, 1, 16, 16, 0),
		dcm.WithElement(tag.NumberOfFrames, "2"),
		dcm.WithSequence(tag.SharedFunctionalGroupsSequence, pvt("1")),
		dcm.WithSequence(tag.PerFrameFunctionalGroupsSequence, pvt("0.25"), dcm.MustDataset()),
	)
	d, err := NewDescriptor(dcm.MustDataset(opts...))
	require.NoError(t, err)

	s0, _ := d.RescaleFor(0)
	s1, _ := d.RescaleFor(1)
	assert.Equal(t, 0.25, s0)
	assert.Equal(t, 1.0, s1)
	assert.False(t, d.HasRescale(1))
}

func TestRangeLimitPadding(t *testing.T) {
	opts := append(imageOpts(1, 1, 16, 16, 0),
		dcm.WithElement(tag.PixelPaddingValue, 10),
		dcm.WithElement(tag.PixelPaddingRangeLimit, 5),
	)
	d, err := NewDescriptor(dcm.MustDataset(opts...))
	require.NoError(t, err)
	assert.Equal(t, 10.0, d.PaddingValue.Or(0))
	assert.Equal(t, 5.0, d.PaddingRangeLimit.Or(0))
}

func TestOverlayPlanes(t *testing.T) {
	opts := append(imageOpts(4, 4, 16, 12, 0),
		dcm.WithOverlay(0, 2, 2, [2]int{1, 1}, []byte{0x09}),
		dcm.WithOverlay(3, 4, 4, [2]int{1, 1}, nil),
		dcm.WithElement(tag.Overlay(tag.OverlayBitsAllocated, 3), 16),
		dcm.WithElement(tag.Overlay(tag.OverlayBitPosition, 3), 13),
		dcm.WithElement(tag.Overlay(tag.OverlayActivationLayer, 0), "LAYER1"),
	)
	d, err := NewDescriptor(dcm.MustDataset(opts...))
	require.NoError(t, err)

	require.Len(t, d.OverlayPlanes, 2)
	p := d.OverlayPlanes[0]
	assert.Equal(t, uint16(0x6000), p.Group)
	assert.Equal(t, 0, p.GroupOffset)
	assert.True(t, p.HasData())
	assert.True(t, p.Bit(0, 0, 0))
	assert.False(t, p.Bit(0, 0, 1))
	assert.True(t, p.Bit(0, 1, 1))
	assert.False(t, p.Bit(0, 5, 5))
	assert.False(t, p.Truncated())
	layer, ok := p.ActivationLayer.Get()
	require.True(t, ok)
	assert.Equal(t, "LAYER1", layer)

	require.Len(t, d.EmbeddedOverlayBits, 1)
	e := d.EmbeddedOverlayBits[0]
	assert.Equal(t, uint16(0x6006), e.Group)
	assert.Equal(t, 3<<17, e.GroupOffset)
	assert.Equal(t, 13, e.BitPosition)
}

func TestOverlayPlane_FrameWindowAndTruncation(t *testing.T) {
	p := OverlayPlane{Rows: 4, Columns: 4, ImageFrameOrigin: 2, FramesInOverlay: 1, Data: []byte{0xFF}}
	assert.False(t, p.AppliesToFrame(0))
	assert.True(t, p.AppliesToFrame(1))
	assert.False(t, p.AppliesToFrame(2))
	assert.True(t, p.Truncated())
	// second byte is missing, reads past it are false rather than a panic
	assert.True(t, p.Bit(1, 1, 3))
	assert.False(t, p.Bit(1, 2, 0))
}

func TestNativeFrame(t *testing.T) {
	opts := append(imageOpts(1, 3, 16, 12, 1),
		dcm.WithNativeFrames(16, words(0x0FFF, 0x0001, 0xF800)),
	)
	ds := dcm.MustDataset(opts...)
	d, err := NewDescriptor(ds)
	require.NoError(t, err)

	m, err := NativeFrame(ds, d, 0)
	require.NoError(t, err)
	assert.Equal(t, raster.TypeS16, m.Type)
	// 12-bit two's complement: 0xFFF is -1, 0x800 is -2048
	assert.Equal(t, []float64{-1, 1, -2048}, m.Data)

	_, err = NativeFrame(ds, d, 1)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestNativeFrame_KeepsEmbeddedBits(t *testing.T) {
	opts := append(imageOpts(1, 2, 16, 12, 0),
		dcm.WithOverlay(0, 1, 2, [2]int{1, 1}, nil),
		dcm.WithElement(tag.Overlay(tag.OverlayBitsAllocated, 0), 16),
		dcm.WithElement(tag.Overlay(tag.OverlayBitPosition, 0), 15),
		dcm.WithNativeFrames(16, words(0x8010, 0x0020)),
	)
	ds := dcm.MustDataset(opts...)
	d, err := NewDescriptor(ds)
	require.NoError(t, err)
	m, err := NativeFrame(ds, d, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0x8010, 0x20}, m.Data)
}

func TestNativeFrame_MultiFrameSingleBuffer(t *testing.T) {
	opts := append(imageOpts(1, 2, 8, 8, 0),
		dcm.WithElement(tag.NumberOfFrames, "2"),
		dcm.WithNativeFrames(8, []byte{1, 2, 3, 4}),
	)
	ds := dcm.MustDataset(opts...)
	d, err := NewDescriptor(ds)
	require.NoError(t, err)
	m, err := NativeFrame(ds, d, 1)
	require.NoError(t, err)
	assert.Equal(t, raster.TypeU8, m.Type)
	assert.Equal(t, []float64{3, 4}, m.Data)
}

func TestNativeFrame_PlanarColor(t *testing.T) {
	ds := dcm.MustDataset(
		dcm.WithElement(tag.Rows, 1),
		dcm.WithElement(tag.Columns, 2),
		dcm.WithElement(tag.SamplesPerPixel, 3),
		dcm.WithElement(tag.PhotometricInterpretation, "RGB"),
		dcm.WithElement(tag.PlanarConfiguration, 1),
		dcm.WithElement(tag.BitsAllocated, 8),
		dcm.WithElement(tag.BitsStored, 8),
		dcm.WithNativeFrames(8, []byte{10, 11, 20, 21, 30, 31}),
	)
	d, err := NewDescriptor(ds)
	require.NoError(t, err)
	assert.True(t, d.IsColor())
	m, err := NativeFrame(ds, d, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 11, 21, 31}, m.Data)
}

func TestFloatFrame(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(-1.5))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(2.25))
	ds := dcm.MustDataset(
		dcm.WithElement(tag.Rows, 1),
		dcm.WithElement(tag.Columns, 2),
		dcm.WithElement(tag.SamplesPerPixel, 1),
		dcm.WithElement(tag.FloatPixelData, data),
	)
	d, err := NewDescriptor(ds)
	require.NoError(t, err)
	assert.True(t, d.Float)
	assert.Equal(t, raster.TypeF32, d.MatrixType())
	m, err := NativeFrame(ds, d, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.5, 2.25}, m.Data)
}

func TestNormalizeDecoded(t *testing.T) {
	d := &Descriptor{Rows: 1, Columns: 2, SamplesPerPixel: 1, BitsAllocated: 16, BitsStored: 16, HighBit: 15, Signed: true}
	m, err := raster.New(2, 1, 1, raster.TypeU16)
	require.NoError(t, err)
	m.Data = []float64{0xFFFF, 5}
	out := NormalizeDecoded(m, d)
	assert.Equal(t, raster.TypeS16, out.Type)
	assert.Equal(t, []float64{-1, 5}, out.Data)
}

func TestPaletteAndVOILUT(t *testing.T) {
	lutItem := dcm.MustDataset(
		dcm.WithElement(tag.LUTDescriptor, []int{4, 0, 8}),
		dcm.WithElement(tag.LUTData, []int{0, 50, 100, 255}),
		dcm.WithElement(tag.LUTExplanation, "SOFT"),
	)
	opts := append(imageOpts(1, 1, 8, 8, 0),
		dcm.WithSequence(tag.VOILUTSequence, lutItem),
	)
	d, err := NewDescriptor(dcm.MustDataset(opts...))
	require.NoError(t, err)
	require.Len(t, d.VOILUTs, 1)
	lut := d.VOILUTs[0]
	assert.Equal(t, "SOFT", lut.Explanation)
	assert.Equal(t, 0, lut.Lookup(-3))
	assert.Equal(t, 100, lut.Lookup(2))
	assert.Equal(t, 255, lut.Lookup(99))
	assert.Equal(t, 255, lut.MaxOutput())

	pal := dcm.MustDataset(
		dcm.WithElement(tag.Rows, 1),
		dcm.WithElement(tag.Columns, 1),
		dcm.WithElement(tag.BitsAllocated, 8),
		dcm.WithElement(tag.PhotometricInterpretation, "PALETTE COLOR"),
		dcm.WithElement(tag.RedPaletteLUTDescriptor, []int{2, 0, 8}),
		dcm.WithElement(tag.GreenPaletteLUTDescriptor, []int{2, 0, 8}),
		dcm.WithElement(tag.BluePaletteLUTDescriptor, []int{2, 0, 8}),
		dcm.WithElement(tag.RedPaletteLUTData, words(0xFF00, 0x0000)),
		dcm.WithElement(tag.GreenPaletteLUTData, words(0x0000, 0xFF00)),
		dcm.WithElement(tag.BluePaletteLUTData, words(0x0000, 0x0000)),
	)
	pd, err := NewDescriptor(pal)
	require.NoError(t, err)
	require.NotNil(t, pd.Palette)
	assert.True(t, pd.IsColor())
	assert.Equal(t, 255, pd.Palette.Red.Lookup(0))
	assert.Equal(t, 255, pd.Palette.Green.Lookup(1))
}
