package pixel

import (
	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/opt"
)

// OverlayPlane is one of the 16 repeating overlay groups (6000-601E)
type OverlayPlane struct {
	Group            uint16
	Slot             int
	GroupOffset      int // slot << 17
	Rows             int
	Columns          int
	Origin           [2]int // row, column; 1-based
	ImageFrameOrigin int    // 1-based
	FramesInOverlay  int
	BitsAllocated    int
	BitPosition      int
	Data             []byte // 1 bit per pixel, least significant bit first
	ActivationLayer  opt.Value[string]
	Type             string // G or R
	Description      string
	Label            string
}

// EmbeddedOverlayBit marks a bit of every pixel sample that carries an
// overlay rather than image data.
type EmbeddedOverlayBit struct {
	Group       uint16
	Slot        int
	GroupOffset int
	BitPosition int
	Plane       OverlayPlane
}

// ReadOverlayPlane reads overlay slot (0..15) from ds. It reports false when
// the slot has no rows or columns.
func ReadOverlayPlane(ds *dcm.Dataset, slot int) (OverlayPlane, bool) {
	if slot < 0 || slot >= tag.OverlaySlots {
		return OverlayPlane{}, false
	}
	at := func(t tag.Tag) tag.Tag { return tag.Overlay(t, slot) }
	rows, okR := ds.Int(at(tag.OverlayRows))
	cols, okC := ds.Int(at(tag.OverlayColumns))
	if !okR || !okC || rows <= 0 || cols <= 0 {
		return OverlayPlane{}, false
	}
	p := OverlayPlane{
		Group:            0x6000 + uint16(2*slot),
		Slot:             slot,
		GroupOffset:      slot << 17,
		Rows:             rows,
		Columns:          cols,
		Origin:           [2]int{1, 1},
		ImageFrameOrigin: ds.IntOr(at(tag.ImageFrameOrigin), 1),
		FramesInOverlay:  ds.IntOr(at(tag.NumberOfFramesInOverlay), 1),
		BitsAllocated:    ds.IntOr(at(tag.OverlayBitsAllocated), 1),
		BitPosition:      ds.IntOr(at(tag.OverlayBitPosition), 0),
		Data:             ds.Bytes(at(tag.OverlayData)),
		Type:             ds.String(at(tag.OverlayType)),
		Description:      ds.String(at(tag.OverlayDescription)),
		Label:            ds.String(at(tag.OverlayLabel)),
	}
	if origin := ds.Ints(at(tag.OverlayOrigin)); len(origin) >= 2 {
		p.Origin = [2]int{origin[0], origin[1]}
	}
	if layer := ds.String(at(tag.OverlayActivationLayer)); layer != "" {
		p.ActivationLayer = opt.Some(layer)
	}
	if p.ImageFrameOrigin < 1 {
		p.ImageFrameOrigin = 1
	}
	if p.FramesInOverlay < 1 {
		p.FramesInOverlay = 1
	}
	return p, true
}

// Embedded reports whether the plane lives in the pixel samples (retired
// PS3.3 C.9.2 form: no Overlay Data, bits allocated wider than one).
func (p OverlayPlane) Embedded() bool {
	return len(p.Data) == 0 && p.BitsAllocated > 1
}

// HasData reports whether the plane carries its own packed bits
func (p OverlayPlane) HasData() bool {
	return len(p.Data) > 0
}

// AppliesToFrame reports whether the 0-based frame falls in
// [ImageFrameOrigin, ImageFrameOrigin+FramesInOverlay) in 1-based numbering.
func (p OverlayPlane) AppliesToFrame(frameIndex int) bool {
	n := frameIndex + 1
	return n >= p.ImageFrameOrigin && n < p.ImageFrameOrigin+p.FramesInOverlay
}

// Bit returns the packed bit at (row, col) of the given 0-based frame.
// Reads beyond the packed data return false.
func (p OverlayPlane) Bit(frameIndex, row, col int) bool {
	if row < 0 || col < 0 || row >= p.Rows || col >= p.Columns {
		return false
	}
	local := frameIndex + 1 - p.ImageFrameOrigin
	if local < 0 || local >= p.FramesInOverlay {
		return false
	}
	i := (local*p.Rows+row)*p.Columns + col
	if i>>3 >= len(p.Data) {
		return false
	}
	return p.Data[i>>3]&(1<<(uint(i)&7)) != 0
}

// Truncated reports whether the declared plane size exceeds the packed data
func (p OverlayPlane) Truncated() bool {
	if !p.HasData() {
		return false
	}
	bits := p.Rows * p.Columns * p.FramesInOverlay
	return (bits+7)/8 > len(p.Data)
}
