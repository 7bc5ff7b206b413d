package dcm

import (
	"encoding/binary"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
)

// Dataset represents a complete DICOM dataset
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element.
//
// Value holds one of: string, []string, int, []int, float64, []float64,
// []byte, []*Dataset (SQ) or *PixelData.
type Element struct {
	Tag   Tag
	VR    string
	Value interface{}
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// PixelData represents pixel data (native or encapsulated)
type PixelData struct {
	IsEncapsulated bool
	Frames         []Frame
	Offsets        []uint32 // Basic Offset Table for encapsulated data
}

// Frame represents a single frame of pixel data
type Frame struct {
	// Native samples, little endian, BitsAllocated per sample
	Data []byte

	// For encapsulated (compressed) data
	CompressedData []byte
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Get returns the element for t
func (ds *Dataset) Get(t Tag) (*Element, bool) {
	if ds == nil {
		return nil, false
	}
	return ds.FindElement(t.Group, t.Element)
}

// Has reports whether t is present
func (ds *Dataset) Has(t Tag) bool {
	_, ok := ds.Get(t)
	return ok
}

// Set replaces (or adds) the element for t using the dictionary VR
func (ds *Dataset) Set(t Tag, value interface{}) {
	ds.SetVR(t, tag.VR(t), value)
}

// SetVR replaces (or adds) the element for t with an explicit VR
func (ds *Dataset) SetVR(t Tag, vr string, value interface{}) {
	if ds.Elements == nil {
		ds.Elements = make(map[Tag]*Element)
	}
	ds.Elements[t] = &Element{Tag: t, VR: vr, Value: value}
}

// Delete removes t from the dataset
func (ds *Dataset) Delete(t Tag) {
	delete(ds.Elements, t)
}

// Tags returns the dataset tags in ascending order
func (ds *Dataset) Tags() []Tag {
	tags := make([]Tag, 0, len(ds.Elements))
	for t := range ds.Elements {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Less(tags[j]) })
	return tags
}

// Clone copies the element map recursively. Byte payloads and pixel frames
// are shared; callers replace them rather than mutating in place.
func (ds *Dataset) Clone() *Dataset {
	out := &Dataset{Elements: make(map[Tag]*Element, len(ds.Elements))}
	for t, elem := range ds.Elements {
		cp := *elem
		if items, ok := elem.Value.([]*Dataset); ok {
			cloned := make([]*Dataset, len(items))
			for i, item := range items {
				cloned[i] = item.Clone()
			}
			cp.Value = cloned
		}
		out.Elements[t] = &cp
	}
	return out
}

// GetString returns a string value from an element; multi-valued strings
// are joined with a backslash.
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, "\\"), true
	}
	return "", false
}

// GetStrings returns the individual values of a string element
func (elem *Element) GetStrings() ([]string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return strings.Split(v, "\\"), true
	case []string:
		return v, true
	}
	return nil, false
}

// GetInt returns the first value of an element as an int
func (elem *Element) GetInt() (int, bool) {
	switch v := elem.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case string, []string:
		if vals, ok := elem.GetInts(); ok && len(vals) > 0 {
			return vals[0], true
		}
	case []byte:
		if len(v) == 2 {
			return int(binary.LittleEndian.Uint16(v)), true
		}
		if len(v) == 4 {
			return int(binary.LittleEndian.Uint32(v)), true
		}
	}
	return 0, false
}

// GetInts returns a slice of ints from an element
func (elem *Element) GetInts() ([]int, bool) {
	switch v := elem.Value.(type) {
	case int:
		return []int{v}, true
	case []uint16:
		res := make([]int, len(v))
		for i, val := range v {
			res[i] = int(val)
		}
		return res, true
	case []int:
		return v, true
	case string, []string:
		strs, _ := elem.GetStrings()
		res := make([]int, 0, len(strs))
		for _, s := range strs {
			i, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, false
			}
			res = append(res, i)
		}
		return res, true
	case []byte:
		if len(v)%2 == 0 {
			res := make([]int, len(v)/2)
			for i := 0; i < len(res); i++ {
				res[i] = int(binary.LittleEndian.Uint16(v[i*2:]))
			}
			return res, true
		}
	}
	return nil, false
}

// GetFloat returns the first value of an element as a float64
func (elem *Element) GetFloat() (float64, bool) {
	vals, ok := elem.GetFloats()
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// GetFloats returns a slice of float64s from an element; decimal strings
// (DS/IS) are parsed.
func (elem *Element) GetFloats() ([]float64, bool) {
	switch v := elem.Value.(type) {
	case []float32:
		res := make([]float64, len(v))
		for i, val := range v {
			res[i] = float64(val)
		}
		return res, true
	case []float64:
		return v, true
	case float32:
		return []float64{float64(v)}, true
	case float64:
		return []float64{v}, true
	case int:
		return []float64{float64(v)}, true
	case []int:
		res := make([]float64, len(v))
		for i, val := range v {
			res[i] = float64(val)
		}
		return res, true
	case string, []string:
		strs, _ := elem.GetStrings()
		res := make([]float64, 0, len(strs))
		for _, s := range strs {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || math.IsNaN(f) {
				return nil, false
			}
			res = append(res, f)
		}
		return res, true
	}
	return nil, false
}

// GetBytes returns the raw payload of an OB/OW/UN element
func (elem *Element) GetBytes() ([]byte, bool) {
	b, ok := elem.Value.([]byte)
	return b, ok
}

// GetSequence returns the items of an SQ element
func (elem *Element) GetSequence() ([]*Dataset, bool) {
	items, ok := elem.Value.([]*Dataset)
	return items, ok
}

// GetPixelData returns pixel data from an element
func (elem *Element) GetPixelData() (*PixelData, bool) {
	if pd, ok := elem.Value.(*PixelData); ok {
		return pd, true
	}
	return nil, false
}
