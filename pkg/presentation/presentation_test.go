package presentation

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/opt"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
	"github.com/jpfielding/dcmimage/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gsps = "1.2.840.10008.5.1.4.1.1.11.1"

func TestNew_KnownTypes(t *testing.T) {
	for i := 1; i <= 12; i++ {
		uid := fmt.Sprintf("1.2.840.10008.5.1.4.1.1.11.%d", i)
		t.Run(uid, func(t *testing.T) {
			s, err := New(dcm.MustDataset(dcm.WithElement(tag.SOPClassUID, uid)))
			require.NoError(t, err)
			assert.Equal(t, uid, s.Type().UID)
			assert.NotEmpty(t, s.Type().Name)
		})
	}
	assert.Len(t, Types(), 12)
}

func TestNew_Rejects(t *testing.T) {
	for _, uid := range []string{
		"",
		"1.2.840.10008.5.1.4.1.1.2",
		"1.2.840.10008.5.1.4.1.1.11",
		"1.2.840.10008.5.1.4.1.1.11.0",
		"1.2.840.10008.5.1.4.1.1.11.13",
		"1.2.840.10008.5.1.4.1.1.11.1.1",
	} {
		_, err := New(dcm.MustDataset(dcm.WithElement(tag.SOPClassUID, uid)))
		assert.ErrorIs(t, err, ErrMissingPresentationState, uid)
	}
}

func TestNew_FileMetaClass(t *testing.T) {
	s, err := New(dcm.MustDataset(dcm.WithFileMeta(gsps, "1.2.3", "1.2.840.10008.1.2.1")))
	require.NoError(t, err)
	assert.True(t, s.Type().Has(VOI|Overlays))
	assert.False(t, s.Type().Has(Volumetric))
}

func imageDS(series, sop string) *dcm.Dataset {
	return dcm.MustDataset(
		dcm.WithElement(tag.SeriesInstanceUID, series),
		dcm.WithElement(tag.SOPInstanceUID, sop),
	)
}

func state(t *testing.T, opts ...dcm.Option) *State {
	t.Helper()
	opts = append([]dcm.Option{dcm.WithElement(tag.SOPClassUID, gsps)}, opts...)
	s, err := New(dcm.MustDataset(opts...))
	require.NoError(t, err)
	return s
}

func TestAppliesTo(t *testing.T) {
	s := state(t, dcm.WithSequence(tag.ReferencedSeriesSequence,
		dcm.MustDataset(
			dcm.WithElement(tag.SeriesInstanceUID, "1.1"),
			dcm.WithSequence(tag.ReferencedImageSequence,
				dcm.MustDataset(dcm.WithElement(tag.ReferencedSOPInstanceUID, "1.1.1")),
				dcm.MustDataset(
					dcm.WithElement(tag.ReferencedSOPInstanceUID, "1.1.2"),
					dcm.WithElement(tag.ReferencedFrameNumber, []int{2, 3}),
				),
			),
		),
	))
	tests := []struct {
		name   string
		img    *dcm.Dataset
		frame  int
		expect bool
	}{
		{"all frames", imageDS("1.1", "1.1.1"), 9, true},
		{"listed frame", imageDS("1.1", "1.1.2"), 1, true},
		{"unlisted frame", imageDS("1.1", "1.1.2"), 0, false},
		{"other image", imageDS("1.1", "1.1.3"), 0, false},
		{"other series", imageDS("2.2", "1.1.1"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, s.AppliesTo(tt.img, tt.frame))
		})
	}
	assert.False(t, state(t).AppliesTo(imageDS("1.1", "1.1.1"), 0))
}

func TestWindowSetting(t *testing.T) {
	s := state(t,
		dcm.WithSequence(tag.SoftcopyVOILUTSequence,
			dcm.MustDataset(
				dcm.WithSequence(tag.ReferencedImageSequence, dcm.MustDataset(dcm.WithElement(tag.ReferencedSOPInstanceUID, "9.9"))),
				dcm.WithElement(tag.WindowCenter, "10"),
				dcm.WithElement(tag.WindowWidth, "20"),
			),
			dcm.MustDataset(
				dcm.WithElement(tag.WindowCenter, "40"),
				dcm.WithElement(tag.WindowWidth, "400"),
				dcm.WithElement(tag.VOILUTFunction, "SIGMOID"),
			),
		),
		dcm.WithElement(tag.PresentationLUTShape, "INVERSE"),
	)

	ws := s.WindowSetting(imageDS("1.1", "1.1.1"), 0)
	c, _ := ws.Center.Get()
	w, _ := ws.Width.Get()
	assert.Equal(t, 40.0, c)
	assert.Equal(t, 400.0, w)
	assert.Equal(t, render.ShapeSigmoid, ws.LutShape.Or(render.ShapeLinear))
	assert.True(t, ws.InverseLut.Or(false))

	ws = s.WindowSetting(imageDS("1.1", "9.9"), 0)
	c, _ = ws.Center.Get()
	assert.Equal(t, 10.0, c)

	ws = state(t, dcm.WithElement(tag.PresentationLUTShape, "IDENTITY")).WindowSetting(imageDS("1", "2"), 0)
	assert.False(t, ws.Center.IsSet())
	inv, set := ws.InverseLut.Get()
	assert.True(t, set)
	assert.False(t, inv)
}

func TestOverlays(t *testing.T) {
	s := state(t,
		dcm.WithOverlay(0, 2, 2, [2]int{1, 1}, []byte{0x0F}),
		dcm.WithElement(tag.Overlay(tag.OverlayActivationLayer, 0), "ANNOT"),
		dcm.WithOverlay(1, 2, 2, [2]int{1, 1}, []byte{0x0F}),
	)
	planes := s.Overlays(0xFFFF)
	require.Len(t, planes, 1)
	assert.Equal(t, 0, planes[0].Slot)
	layer, _ := planes[0].ActivationLayer.Get()
	assert.Equal(t, "ANNOT", layer)
	assert.Empty(t, s.Overlays(0xFFFE))
}

func TestLayerColor(t *testing.T) {
	s := state(t, dcm.WithSequence(tag.GraphicLayerSequence,
		dcm.MustDataset(
			dcm.WithElement(tag.GraphicLayer, "GRAY"),
			dcm.WithElement(tag.GraphicLayerRecommendedDisplayGrayscaleValue, 0x8000),
		),
		dcm.MustDataset(
			dcm.WithElement(tag.GraphicLayer, "WHITE"),
			dcm.WithElement(tag.GraphicLayerRecommendedDisplayCIELabValue, []int{0xFFFF, 0x8080, 0x8080}),
		),
		dcm.MustDataset(dcm.WithElement(tag.GraphicLayer, "PLAIN")),
	))

	c, ok := s.LayerColor("gray")
	require.True(t, ok)
	assert.Equal(t, color.Gray16{Y: 0x8000}, c)

	c, ok = s.LayerColor("WHITE")
	require.True(t, ok)
	rgba := c.(color.RGBA)
	assert.InDelta(t, 255, int(rgba.R), 1)
	assert.InDelta(t, 255, int(rgba.G), 1)
	assert.InDelta(t, 255, int(rgba.B), 1)

	_, ok = s.LayerColor("PLAIN")
	assert.False(t, ok)
	_, ok = s.LayerColor("MISSING")
	assert.False(t, ok)
}

func TestOverlayOptions(t *testing.T) {
	s := state(t,
		dcm.WithOverlay(0, 1, 2, [2]int{1, 1}, []byte{0x03}),
		dcm.WithElement(tag.Overlay(tag.OverlayActivationLayer, 0), "GRAY"),
		dcm.WithOverlay(1, 1, 2, [2]int{2, 1}, []byte{0x03}),
		dcm.WithElement(tag.Overlay(tag.OverlayActivationLayer, 1), "UNLISTED"),
		dcm.WithSequence(tag.GraphicLayerSequence, dcm.MustDataset(
			dcm.WithElement(tag.GraphicLayer, "GRAY"),
			dcm.WithElement(tag.GraphicLayerRecommendedDisplayGrayscaleValue, 0x8000),
		)),
	)
	desc := &pixel.Descriptor{
		Rows: 2, Columns: 2, SamplesPerPixel: 1,
		BitsAllocated: 8, BitsStored: 8, HighBit: 7,
		Photometric: pixel.Monochrome2,
	}
	raw, err := raster.New(2, 2, 1, raster.TypeU8)
	require.NoError(t, err)
	setting := render.WindowLevelSetting{Center: opt.Some(128.0), Width: opt.Some(256.0)}

	gray := func(opts []render.Option) (top, bottom uint8) {
		img, err := render.NewPipeline(opts...).Render(raw, desc, setting, 0)
		require.NoError(t, err)
		return color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y,
			color.GrayModel.Convert(img.At(0, 1)).(color.Gray).Y
	}

	top, bottom := gray(s.OverlayOptions(0xFFFF))
	assert.Equal(t, uint8(0x80), top, "layer recommended grayscale")
	assert.Equal(t, uint8(0xFF), bottom, "pipeline overlay color")

	top, bottom = gray(s.OverlayOptions(0x0002))
	assert.Equal(t, uint8(0), top, "slot 0 masked off")
	assert.Equal(t, uint8(0xFF), bottom)
}

func TestLabToRGB_Black(t *testing.T) {
	assert.Equal(t, color.RGBA{A: 0xFF}, labToRGB(0, 0x8080, 0x8080))
}
