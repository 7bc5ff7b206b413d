package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlayDataset(t *testing.T) *dcm.Dataset {
	t.Helper()
	ds, err := dcm.NewDataset(
		dcm.WithElement(tag.Rows, 4),
		dcm.WithElement(tag.Columns, 4),
		dcm.WithOverlay(0, 2, 2, [2]int{1, 1}, []byte{0x09}),
		dcm.WithOverlay(1, 2, 2, [2]int{1, 1}, nil), // no data
		dcm.WithOverlay(2, 2, 2, [2]int{3, 3}, []byte{0x0F}),
		dcm.WithElement(tag.Overlay(tag.OverlayActivationLayer, 2), "LAYER1"),
	)
	require.NoError(t, err)
	return ds
}

func slots(planes []pixel.OverlayPlane) []int {
	var out []int
	for _, p := range planes {
		out = append(out, p.Slot)
	}
	return out
}

func TestExtract(t *testing.T) {
	ds := overlayDataset(t)
	tests := []struct {
		name         string
		mask         uint16
		presentation bool
		want         []int
	}{
		{name: "all", mask: AllSlots, want: []int{0, 2}},
		{name: "slot 0 only", mask: 0x0001, want: []int{0}},
		{name: "slot without data", mask: 0x0002, want: nil},
		{name: "none", mask: 0, want: nil},
		{name: "presentation", mask: AllSlots, presentation: true, want: []int{2}},
		{name: "presentation masked", mask: 0x0001, presentation: true, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []pixel.OverlayPlane
			if tt.presentation {
				got = ExtractPresentationOverlays(ds, tt.mask)
			} else {
				got = Extract(ds, tt.mask)
			}
			assert.Equal(t, tt.want, slots(got))
		})
	}
}

func TestFilter(t *testing.T) {
	planes := []pixel.OverlayPlane{{Slot: 0}, {Slot: 3}, {Slot: 15}}
	assert.Equal(t, []int{3, 15}, slots(Filter(planes, 1<<3|1<<15)))
	assert.Empty(t, Filter(planes, 0))
}

func TestComposite_Identity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	got, status := Composite(img, nil, 0, nil)
	assert.Same(t, img, got.(*image.Gray))
	assert.Equal(t, raster.Unchanged, status)

	// a plane for another frame only
	planes := []pixel.OverlayPlane{{Rows: 1, Columns: 1, Origin: [2]int{1, 1}, ImageFrameOrigin: 3, FramesInOverlay: 1, Data: []byte{1}}}
	got, status = Composite(img, planes, 0, nil)
	assert.Same(t, img, got.(*image.Gray))
	assert.Equal(t, raster.Unchanged, status)
}

func TestComposite_FrameWindow(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	planes := []pixel.OverlayPlane{{
		Rows: 1, Columns: 1, Origin: [2]int{1, 1},
		ImageFrameOrigin: 2, FramesInOverlay: 1,
		Data: []byte{0x01},
	}}
	for frame, painted := range map[int]bool{0: false, 1: true, 2: false} {
		got, status := Composite(img, planes, frame, nil)
		if !painted {
			assert.Equal(t, raster.Unchanged, status, "frame %d", frame)
			continue
		}
		require.Equal(t, raster.Replaced, status)
		g := got.(*image.Gray)
		assert.Equal(t, uint8(255), g.GrayAt(0, 0).Y)
		assert.Equal(t, uint8(0), g.GrayAt(1, 1).Y)
		assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y, "input untouched")
	}
}

func TestComposite_PaintsAtOriginAndClips(t *testing.T) {
	ds := overlayDataset(t)
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	red := color.RGBA{R: 255, A: 255}

	got, status := Composite(img, Extract(ds, AllSlots), 0, red)
	require.Equal(t, raster.Replaced, status)
	rgba, ok := got.(*image.RGBA)
	require.True(t, ok)

	// slot 0: bits 0 and 3 of a 2x2 plane at (1,1)
	assert.Equal(t, red, rgba.RGBAAt(0, 0))
	assert.Equal(t, red, rgba.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{A: 255}, rgba.RGBAAt(1, 0))
	// slot 2: 2x2 block at (3,3); only its top-left pixel is inside a 3x3 image
	assert.Equal(t, red, rgba.RGBAAt(2, 2))
}

func TestComposite_TruncatedData(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	planes := []pixel.OverlayPlane{{
		Rows: 4, Columns: 4, Origin: [2]int{1, 1},
		ImageFrameOrigin: 1, FramesInOverlay: 1,
		Data: []byte{0xFF}, // declares 16 bits, carries 8
	}}
	got, status := Composite(img, planes, 0, color.Gray{Y: 200})
	require.Equal(t, raster.Replaced, status)
	g := got.(*image.Gray)
	assert.Equal(t, uint8(200), g.GrayAt(3, 1).Y)
	assert.Equal(t, uint8(0), g.GrayAt(0, 2).Y)
}

func embeddedDescriptor(t *testing.T) *pixel.Descriptor {
	t.Helper()
	ds, err := dcm.NewDataset(
		dcm.WithElement(tag.Rows, 2),
		dcm.WithElement(tag.Columns, 2),
		dcm.WithElement(tag.BitsAllocated, 16),
		dcm.WithElement(tag.BitsStored, 12),
		dcm.WithElement(tag.HighBit, 11),
		dcm.WithElement(tag.PixelRepresentation, 0),
		dcm.WithOverlay(0, 2, 2, [2]int{1, 1}, nil),
		dcm.WithElement(tag.Overlay(tag.OverlayBitsAllocated, 0), 16),
		dcm.WithElement(tag.Overlay(tag.OverlayBitPosition, 0), 15),
		dcm.WithNativeFrames(16, make([]byte, 8)),
	)
	require.NoError(t, err)
	d, err := pixel.NewDescriptor(ds)
	require.NoError(t, err)
	require.Len(t, d.EmbeddedOverlayBits, 1)
	return d
}

func TestEmbeddedPlanes(t *testing.T) {
	d := embeddedDescriptor(t)
	raw, err := raster.New(2, 2, 1, raster.TypeU16)
	require.NoError(t, err)
	copy(raw.Data, []float64{0x8000 | 5, 5, 5, 0x8000})

	planes := EmbeddedPlanes(raw, d, 3)
	require.Len(t, planes, 1)
	p := planes[0]
	assert.True(t, p.AppliesToFrame(3))
	assert.False(t, p.AppliesToFrame(0))
	assert.True(t, p.Bit(3, 0, 0))
	assert.False(t, p.Bit(3, 0, 1))
	assert.True(t, p.Bit(3, 1, 1))
}

func TestCompositeEmbedded(t *testing.T) {
	d := embeddedDescriptor(t)
	raw, err := raster.New(2, 2, 1, raster.TypeU16)
	require.NoError(t, err)
	raw.Data[0] = 0x8000
	planes := EmbeddedPlanes(raw, d, 0)

	t.Run("same size", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		got, status := CompositeEmbedded(raw, img, planes, d, 0, nil)
		require.Equal(t, raster.Replaced, status)
		assert.Equal(t, uint8(255), got.(*image.Gray).GrayAt(0, 0).Y)
	})
	t.Run("size mismatch", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 3, 2))
		got, status := CompositeEmbedded(raw, img, planes, d, 0, nil)
		assert.Equal(t, raster.Unchanged, status)
		assert.Same(t, img, got.(*image.Gray))
	})
}
