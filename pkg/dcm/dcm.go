// Package dcm holds the in-memory DICOM dataset used by the renderer and
// transcoder, and the Part 10 file reader and writer for it.
//
// Basic usage:
//
//	ds, err := dcm.ReadFile("/path/to/image.dcm")
//	if err != nil {
//		log.Fatal(err)
//	}
//	rows, _ := ds.Int(tag.Rows)
//	if _, err := dcm.WriteFile("/tmp/out.dcm", ds); err != nil {
//		log.Fatal(err)
//	}
package dcm

import (
	"strings"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
)

// String returns the trimmed string value of t
func (ds *Dataset) String(t Tag) string {
	if elem, ok := ds.Get(t); ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimRight(strings.TrimSpace(s), "\x00")
		}
	}
	return ""
}

// Strings returns the individual trimmed values of t
func (ds *Dataset) Strings(t Tag) []string {
	elem, ok := ds.Get(t)
	if !ok {
		return nil
	}
	vals, ok := elem.GetStrings()
	if !ok {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.TrimRight(strings.TrimSpace(v), "\x00")
	}
	return out
}

// Int returns the first integer value of t
func (ds *Dataset) Int(t Tag) (int, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetInt()
	}
	return 0, false
}

// IntOr returns the first integer value of t, or def when absent
func (ds *Dataset) IntOr(t Tag, def int) int {
	if v, ok := ds.Int(t); ok {
		return v
	}
	return def
}

// Ints returns every integer value of t
func (ds *Dataset) Ints(t Tag) []int {
	if elem, ok := ds.Get(t); ok {
		if v, ok := elem.GetInts(); ok {
			return v
		}
	}
	return nil
}

// Float returns the first numeric value of t
func (ds *Dataset) Float(t Tag) (float64, bool) {
	if elem, ok := ds.Get(t); ok {
		return elem.GetFloat()
	}
	return 0, false
}

// Floats returns every numeric value of t
func (ds *Dataset) Floats(t Tag) []float64 {
	if elem, ok := ds.Get(t); ok {
		if v, ok := elem.GetFloats(); ok {
			return v
		}
	}
	return nil
}

// Bytes returns the raw payload of t
func (ds *Dataset) Bytes(t Tag) []byte {
	if elem, ok := ds.Get(t); ok {
		if b, ok := elem.GetBytes(); ok {
			return b
		}
	}
	return nil
}

// Sequence returns the items of the SQ element t
func (ds *Dataset) Sequence(t Tag) []*Dataset {
	if elem, ok := ds.Get(t); ok {
		if items, ok := elem.GetSequence(); ok {
			return items
		}
	}
	return nil
}

// PixelData returns the pixel data element value, if any
func (ds *Dataset) PixelData() (*PixelData, bool) {
	if elem, ok := ds.Get(tag.PixelData); ok {
		return elem.GetPixelData()
	}
	return nil, false
}

// GetTransferSyntax returns the transfer syntax UID, defaulting to
// Explicit VR Little Endian
func GetTransferSyntax(ds *Dataset) string {
	if uid := ds.String(tag.TransferSyntaxUID); uid != "" {
		return uid
	}
	return "1.2.840.10008.1.2.1"
}

// GetSOPClassUID returns the SOP Class UID, falling back to the file meta
// Media Storage SOP Class UID.
func GetSOPClassUID(ds *Dataset) string {
	if uid := ds.String(tag.SOPClassUID); uid != "" {
		return uid
	}
	return ds.String(tag.MediaStorageSOPClassUID)
}

// GetNumberOfFrames returns NumberOfFrames, defaulting to 1
func GetNumberOfFrames(ds *Dataset) int {
	if n, ok := ds.Int(tag.NumberOfFrames); ok && n > 0 {
		return n
	}
	return 1
}
