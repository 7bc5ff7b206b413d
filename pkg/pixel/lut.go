package pixel

import (
	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
)

// LUT is a lookup table with a first-mapped input value
type LUT struct {
	FirstMapped int
	Bits        int
	Data        []int
	Explanation string
}

// Lookup maps v, clamping to the first and last entries
func (l LUT) Lookup(v float64) int {
	if len(l.Data) == 0 {
		return 0
	}
	i := int(v) - l.FirstMapped
	if i < 0 {
		return l.Data[0]
	}
	if i >= len(l.Data) {
		return l.Data[len(l.Data)-1]
	}
	return l.Data[i]
}

// MaxOutput is the largest value the table can produce
func (l LUT) MaxOutput() int {
	if l.Bits <= 0 || l.Bits > 16 {
		return 0xFFFF
	}
	return 1<<l.Bits - 1
}

// Palette holds the three PALETTE COLOR tables
type Palette struct {
	Red, Green, Blue LUT
}

func readLUT(ds *dcm.Dataset, descTag, dataTag tag.Tag, signed bool) (LUT, bool) {
	desc := ds.Ints(descTag)
	if len(desc) < 3 {
		return LUT{}, false
	}
	entries := desc[0]
	if entries == 0 {
		entries = 1 << 16
	}
	first := desc[1]
	if signed && first > 0x7FFF {
		first -= 0x10000
	}
	lut := LUT{FirstMapped: first, Bits: desc[2]}

	raw := ds.Bytes(dataTag)
	switch {
	case raw != nil && lut.Bits <= 8 && len(raw) == entries:
		lut.Data = make([]int, entries)
		for i, b := range raw {
			lut.Data[i] = int(b)
		}
	default:
		lut.Data = ds.Ints(dataTag)
	}
	if len(lut.Data) == 0 {
		return LUT{}, false
	}
	if len(lut.Data) > entries {
		lut.Data = lut.Data[:entries]
	}
	if lut.Bits == 8 {
		// 8-bit entries stored in 16-bit words may use the high byte
		for _, v := range lut.Data {
			if v > 0xFF {
				for i := range lut.Data {
					lut.Data[i] >>= 8
				}
				break
			}
		}
	}
	return lut, true
}

func readPalette(ds *dcm.Dataset) *Palette {
	r, okR := readLUT(ds, tag.RedPaletteLUTDescriptor, tag.RedPaletteLUTData, false)
	g, okG := readLUT(ds, tag.GreenPaletteLUTDescriptor, tag.GreenPaletteLUTData, false)
	b, okB := readLUT(ds, tag.BluePaletteLUTDescriptor, tag.BluePaletteLUTData, false)
	if !okR || !okG || !okB {
		return nil
	}
	return &Palette{Red: r, Green: g, Blue: b}
}
