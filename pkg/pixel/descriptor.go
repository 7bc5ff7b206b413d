// Package pixel describes how the samples of an image instance are stored:
// bit layout, photometric interpretation, modality rescale, padding, window
// presets, lookup tables and overlay planes.
//
// A Descriptor is built once per instance with NewDescriptor and is never
// mutated afterwards, so it can be shared by concurrent frame workers.
package pixel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/opt"
)

// ErrInvalidDescriptor is returned when the image pixel attributes are
// missing or inconsistent.
var ErrInvalidDescriptor = errors.New("pixel: invalid image pixel description")

// Photometric is the PhotometricInterpretation of the stored samples
type Photometric string

const (
	Monochrome1   Photometric = "MONOCHROME1"
	Monochrome2   Photometric = "MONOCHROME2"
	PaletteColor  Photometric = "PALETTE COLOR"
	RGB           Photometric = "RGB"
	YBRFull       Photometric = "YBR_FULL"
	YBRFull422    Photometric = "YBR_FULL_422"
	YBRPartial422 Photometric = "YBR_PARTIAL_422"
	YBRPartial420 Photometric = "YBR_PARTIAL_420"
	YBRICT        Photometric = "YBR_ICT"
	YBRRCT        Photometric = "YBR_RCT"
)

// IsMonochrome reports whether samples are grayscale
func (p Photometric) IsMonochrome() bool {
	return p == Monochrome1 || p == Monochrome2
}

// IsYBR reports whether samples are in one of the YCbCr encodings
func (p Photometric) IsYBR() bool {
	return strings.HasPrefix(string(p), "YBR_")
}

// Rescale is a modality LUT expressed as slope and intercept
type Rescale struct {
	Slope     opt.Value[float64]
	Intercept opt.Value[float64]
	Type      string
}

// IsSet reports whether either value was present
func (r Rescale) IsSet() bool {
	return r.Slope.IsSet() || r.Intercept.IsSet()
}

// merge overlays the set fields of o onto r
func (r Rescale) merge(o Rescale) Rescale {
	if o.Slope.IsSet() {
		r.Slope = o.Slope
	}
	if o.Intercept.IsSet() {
		r.Intercept = o.Intercept
	}
	if o.Type != "" {
		r.Type = o.Type
	}
	return r
}

// Window is a center/width preset from the dataset
type Window struct {
	Center      float64
	Width       float64
	Explanation string
	Function    string // LINEAR, LINEAR_EXACT, SIGMOID
}

// Descriptor holds the per-instance pixel facts used by every stage
type Descriptor struct {
	Rows                int
	Columns             int
	Frames              int
	SamplesPerPixel     int
	BitsAllocated       int
	BitsStored          int
	HighBit             int
	Signed              bool
	Float               bool // Float or Double Float Pixel Data
	Photometric         Photometric
	PlanarConfiguration int

	Rescale      Rescale
	FrameRescale []Rescale // per-frame overrides, indexed by frame

	PaddingValue      opt.Value[float64]
	PaddingRangeLimit opt.Value[float64]

	Windows      []Window
	FrameWindows [][]Window // per-frame overrides, indexed by frame
	VOILUTs      []LUT
	Palette      *Palette

	OverlayPlanes       []OverlayPlane
	EmbeddedOverlayBits []EmbeddedOverlayBit

	SOPClassUID       string
	SOPInstanceUID    string
	SeriesInstanceUID string
	StationName       string
	TransferSyntax    string
}

// NewDescriptor reads the pixel description of ds
func NewDescriptor(ds *dcm.Dataset) (*Descriptor, error) {
	d := &Descriptor{
		Rows:                ds.IntOr(tag.Rows, 0),
		Columns:             ds.IntOr(tag.Columns, 0),
		Frames:              dcm.GetNumberOfFrames(ds),
		SamplesPerPixel:     ds.IntOr(tag.SamplesPerPixel, 1),
		BitsAllocated:       ds.IntOr(tag.BitsAllocated, 0),
		Signed:              ds.IntOr(tag.PixelRepresentation, 0) == 1,
		Photometric:         Photometric(strings.ToUpper(ds.String(tag.PhotometricInterpretation))),
		PlanarConfiguration: ds.IntOr(tag.PlanarConfiguration, 0),
		SOPClassUID:         dcm.GetSOPClassUID(ds),
		SOPInstanceUID:      ds.String(tag.SOPInstanceUID),
		SeriesInstanceUID:   ds.String(tag.SeriesInstanceUID),
		StationName:         ds.String(tag.StationName),
		TransferSyntax:      dcm.GetTransferSyntax(ds),
	}

	switch {
	case ds.Has(tag.FloatPixelData):
		d.Float, d.BitsAllocated = true, 32
	case ds.Has(tag.DoubleFloatPixelData):
		d.Float, d.BitsAllocated = true, 64
	}
	if d.Rows <= 0 || d.Columns <= 0 {
		return nil, fmt.Errorf("%w: rows %d columns %d", ErrInvalidDescriptor, d.Rows, d.Columns)
	}
	if d.BitsAllocated <= 0 {
		return nil, fmt.Errorf("%w: bits allocated %d", ErrInvalidDescriptor, d.BitsAllocated)
	}
	if d.SamplesPerPixel != 1 && d.SamplesPerPixel != 3 {
		return nil, fmt.Errorf("%w: samples per pixel %d", ErrInvalidDescriptor, d.SamplesPerPixel)
	}
	d.BitsStored = ds.IntOr(tag.BitsStored, d.BitsAllocated)
	if d.BitsStored <= 0 || d.BitsStored > d.BitsAllocated {
		d.BitsStored = d.BitsAllocated
	}
	d.HighBit = ds.IntOr(tag.HighBit, d.BitsStored-1)
	if d.Photometric == "" {
		d.Photometric = Monochrome2
		if d.SamplesPerPixel == 3 {
			d.Photometric = RGB
		}
	}

	d.Rescale = readRescale(ds)
	for _, item := range ds.Sequence(tag.SharedFunctionalGroupsSequence) {
		for _, pvt := range item.Sequence(tag.PixelValueTransformation) {
			d.Rescale = d.Rescale.merge(readRescale(pvt))
		}
		for _, voi := range item.Sequence(tag.FrameVOILUTSequence) {
			if w := readWindows(voi); len(w) > 0 {
				d.Windows = w
			}
		}
	}
	if d.Windows == nil {
		d.Windows = readWindows(ds)
	}
	if perFrame := ds.Sequence(tag.PerFrameFunctionalGroupsSequence); len(perFrame) > 0 {
		d.FrameRescale = make([]Rescale, len(perFrame))
		d.FrameWindows = make([][]Window, len(perFrame))
		for i, item := range perFrame {
			for _, pvt := range item.Sequence(tag.PixelValueTransformation) {
				d.FrameRescale[i] = d.FrameRescale[i].merge(readRescale(pvt))
			}
			for _, voi := range item.Sequence(tag.FrameVOILUTSequence) {
				d.FrameWindows[i] = readWindows(voi)
			}
		}
	}

	if v, ok := ds.Int(tag.PixelPaddingValue); ok {
		d.PaddingValue = opt.Some(d.signedAttr(v))
	}
	if v, ok := ds.Int(tag.PixelPaddingRangeLimit); ok {
		d.PaddingRangeLimit = opt.Some(d.signedAttr(v))
	}

	for _, item := range ds.Sequence(tag.VOILUTSequence) {
		if lut, ok := readLUT(item, tag.LUTDescriptor, tag.LUTData, d.Signed); ok {
			lut.Explanation = item.String(tag.LUTExplanation)
			d.VOILUTs = append(d.VOILUTs, lut)
		}
	}
	if d.Photometric == PaletteColor {
		d.Palette = readPalette(ds)
	}

	for slot := 0; slot < tag.OverlaySlots; slot++ {
		plane, ok := ReadOverlayPlane(ds, slot)
		if !ok {
			continue
		}
		d.OverlayPlanes = append(d.OverlayPlanes, plane)
		if plane.Embedded() {
			d.EmbeddedOverlayBits = append(d.EmbeddedOverlayBits, EmbeddedOverlayBit{
				Group:       plane.Group,
				Slot:        plane.Slot,
				GroupOffset: plane.GroupOffset,
				BitPosition: plane.BitPosition,
				Plane:       plane,
			})
		}
	}
	return d, nil
}

// signedAttr reinterprets a US-encoded attribute of a signed image
func (d *Descriptor) signedAttr(v int) float64 {
	if d.Signed && d.BitsAllocated <= 16 && v > 0x7FFF {
		return float64(v - 0x10000)
	}
	return float64(v)
}

func readRescale(ds *dcm.Dataset) Rescale {
	var r Rescale
	if v, ok := ds.Float(tag.RescaleSlope); ok {
		r.Slope = opt.Some(v)
	}
	if v, ok := ds.Float(tag.RescaleIntercept); ok {
		r.Intercept = opt.Some(v)
	}
	r.Type = ds.String(tag.RescaleType)
	return r
}

func readWindows(ds *dcm.Dataset) []Window {
	centers := ds.Floats(tag.WindowCenter)
	widths := ds.Floats(tag.WindowWidth)
	explanations := ds.Strings(tag.WindowCenterWidthExplanation)
	function := strings.ToUpper(ds.String(tag.VOILUTFunction))
	n := min(len(centers), len(widths))
	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		if widths[i] <= 0 {
			continue
		}
		w := Window{Center: centers[i], Width: widths[i], Function: function}
		if i < len(explanations) {
			w.Explanation = explanations[i]
		}
		windows = append(windows, w)
	}
	return windows
}

// NumFrames returns the frame count
func (d *Descriptor) NumFrames() int {
	return max(d.Frames, 1)
}

// IsColor reports whether frames carry three samples per pixel, or are
// palette indices that expand to color.
func (d *Descriptor) IsColor() bool {
	return d.SamplesPerPixel == 3 || d.Photometric == PaletteColor
}

// RescaleFor returns slope and intercept for a frame; per-frame functional
// group values win over the instance values. Absent values are 1 and 0.
func (d *Descriptor) RescaleFor(frameIndex int) (slope, intercept float64) {
	r := d.Rescale
	if frameIndex >= 0 && frameIndex < len(d.FrameRescale) {
		r = r.merge(d.FrameRescale[frameIndex])
	}
	return r.Slope.Or(1), r.Intercept.Or(0)
}

// HasRescale reports whether any modality rescale applies to the frame
func (d *Descriptor) HasRescale(frameIndex int) bool {
	slope, intercept := d.RescaleFor(frameIndex)
	return slope != 1 || intercept != 0
}

// WindowsFor returns the window presets that apply to a frame
func (d *Descriptor) WindowsFor(frameIndex int) []Window {
	if frameIndex >= 0 && frameIndex < len(d.FrameWindows) && len(d.FrameWindows[frameIndex]) > 0 {
		return d.FrameWindows[frameIndex]
	}
	return d.Windows
}

// StoredRange returns the smallest and largest stored value
func (d *Descriptor) StoredRange() (lo, hi float64) {
	bits := d.BitsStored
	if d.Float {
		return -1 << 31, 1<<31 - 1
	}
	if d.Signed {
		return -float64(int64(1) << (bits - 1)), float64(int64(1)<<(bits-1) - 1)
	}
	return 0, float64(int64(1)<<bits - 1)
}
