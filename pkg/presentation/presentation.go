// Package presentation reads presentation state objects (PS3.3 A.33): which
// images they reference, the window they impose, and the overlays and
// graphic layers they activate.
package presentation

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/opt"
	"github.com/jpfielding/dcmimage/pkg/overlay"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/render"
)

// ErrMissingPresentationState is returned for a dataset that is not one of
// the presentation state SOP classes.
var ErrMissingPresentationState = errors.New("presentation: not a presentation state")

// State is a parsed presentation state
type State struct {
	ds  *dcm.Dataset
	typ Type
}

// New wraps a presentation state dataset
func New(ds *dcm.Dataset) (*State, error) {
	uid := dcm.GetSOPClassUID(ds)
	typ, ok := LookupType(uid)
	if !ok {
		return nil, fmt.Errorf("%w: SOP class %q", ErrMissingPresentationState, uid)
	}
	return &State{ds: ds, typ: typ}, nil
}

// Type returns the presentation state type
func (s *State) Type() Type {
	return s.typ
}

// Label returns the Content Label
func (s *State) Label() string {
	return s.ds.String(tag.ContentLabel)
}

// Description returns the Content Description
func (s *State) Description() string {
	return s.ds.String(tag.ContentDescription)
}

// Overlays returns the overlay planes stored in the presentation state that
// are activated on a graphic layer.
func (s *State) Overlays(activationMask uint16) []pixel.OverlayPlane {
	return overlay.ExtractPresentationOverlays(s.ds, activationMask)
}

// OverlayOptions returns pipeline options that paint the activated overlays,
// each in the recommended color of its graphic layer when the layer has one.
func (s *State) OverlayOptions(activationMask uint16) []render.Option {
	var plain []pixel.OverlayPlane
	var opts []render.Option
	for _, p := range s.Overlays(activationMask) {
		if c, ok := s.LayerColor(p.ActivationLayer.Or("")); ok {
			opts = append(opts, render.WithColoredOverlays(c, p))
			continue
		}
		plain = append(plain, p)
	}
	if len(plain) > 0 {
		opts = append(opts, render.WithOverlays(plain...))
	}
	return opts
}

// AppliesTo reports whether the state references the image and frame
// (0-based). A referenced image without Referenced Frame Number covers all
// of its frames.
func (s *State) AppliesTo(img *dcm.Dataset, frameIndex int) bool {
	series := img.String(tag.SeriesInstanceUID)
	sop := img.String(tag.SOPInstanceUID)
	for _, rs := range s.ds.Sequence(tag.ReferencedSeriesSequence) {
		if rs.String(tag.SeriesInstanceUID) != series {
			continue
		}
		if referencesImage(rs.Sequence(tag.ReferencedImageSequence), sop, frameIndex) {
			return true
		}
	}
	return false
}

func referencesImage(items []*dcm.Dataset, sop string, frameIndex int) bool {
	for _, ri := range items {
		if ri.String(tag.ReferencedSOPInstanceUID) != sop {
			continue
		}
		frames := ri.Ints(tag.ReferencedFrameNumber)
		if len(frames) == 0 {
			return true
		}
		for _, f := range frames {
			if f == frameIndex+1 {
				return true
			}
		}
	}
	return false
}

// WindowSetting returns the window the state imposes on an image frame: the
// first Softcopy VOI LUT item that covers the frame (items without
// references cover every image) plus the Presentation LUT Shape.
func (s *State) WindowSetting(img *dcm.Dataset, frameIndex int) render.WindowLevelSetting {
	var ws render.WindowLevelSetting
	sop := img.String(tag.SOPInstanceUID)
	for _, item := range s.ds.Sequence(tag.SoftcopyVOILUTSequence) {
		refs := item.Sequence(tag.ReferencedImageSequence)
		if len(refs) > 0 && !referencesImage(refs, sop, frameIndex) {
			continue
		}
		centers, widths := item.Floats(tag.WindowCenter), item.Floats(tag.WindowWidth)
		if len(centers) > 0 && len(widths) > 0 && widths[0] > 0 {
			ws.Center = opt.Some(centers[0])
			ws.Width = opt.Some(widths[0])
			if shape, err := render.ParseLutShape(item.String(tag.VOILUTFunction)); err == nil {
				ws.LutShape = opt.Some(shape)
			}
		}
		break
	}
	switch strings.ToUpper(s.ds.String(tag.PresentationLUTShape)) {
	case "INVERSE":
		ws.InverseLut = opt.Some(true)
	case "IDENTITY":
		ws.InverseLut = opt.Some(false)
	}
	return ws
}

// LayerColor returns the recommended display color of a graphic layer:
// the grayscale value when present, otherwise the CIELab value.
func (s *State) LayerColor(layer string) (color.Color, bool) {
	for _, item := range s.ds.Sequence(tag.GraphicLayerSequence) {
		if !strings.EqualFold(item.String(tag.GraphicLayer), layer) {
			continue
		}
		if v, ok := item.Int(tag.GraphicLayerRecommendedDisplayGrayscaleValue); ok {
			return color.Gray16{Y: uint16(min(max(v, 0), 0xFFFF))}, true
		}
		if lab := item.Ints(tag.GraphicLayerRecommendedDisplayCIELabValue); len(lab) == 3 {
			return labToRGB(lab[0], lab[1], lab[2]), true
		}
		return nil, false
	}
	return nil, false
}

// labToRGB converts a DICOM scaled CIELab triple (PS3.3 C.10.7.1.1, D50) to sRGB
func labToRGB(l, a, b int) color.RGBA {
	L := float64(l) * 100 / 65535
	A := float64(a)*255/65535 - 128
	B := float64(b)*255/65535 - 128

	fy := (L + 16) / 116
	fx := fy + A/500
	fz := fy - B/200
	finv := func(t float64) float64 {
		if t > 6.0/29 {
			return t * t * t
		}
		return 3 * (6.0 / 29) * (6.0 / 29) * (t - 4.0/29)
	}
	// D50 white
	x, y, z := 0.9642*finv(fx), 1.0*finv(fy), 0.8251*finv(fz)

	// Bradford adapted D50 XYZ to linear sRGB
	r := 3.1338561*x - 1.6168667*y - 0.4906146*z
	g := -0.9787684*x + 1.9161415*y + 0.0334540*z
	bl := 0.0719453*x - 0.2289914*y + 1.4052427*z

	gamma := func(c float64) uint8 {
		if c <= 0.0031308 {
			c *= 12.92
		} else {
			c = 1.055*math.Pow(c, 1/2.4) - 0.055
		}
		return uint8(math.Round(math.Max(0, math.Min(1, c)) * 255))
	}
	return color.RGBA{R: gamma(r), G: gamma(g), B: gamma(bl), A: 0xFF}
}
