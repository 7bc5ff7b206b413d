package dcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/suyashkumar/dicom"
)

// ReadFile reads a DICOM Part 10 file from disk
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ReadBuffer(data)
}

// ReadBuffer parses a DICOM Part 10 file held in memory
func ReadBuffer(data []byte) (*Dataset, error) {
	return Parse(bytes.NewReader(data), int64(len(data)))
}

// Parse reads size bytes of a DICOM Part 10 stream. Sequences, overlays and
// native or encapsulated pixel data are all carried into the Dataset.
func Parse(r io.Reader, size int64) (*Dataset, error) {
	parsed, err := dicom.Parse(r, size, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing dicom: %w", err)
	}
	ds := convertElements(parsed.Elements, "")
	slog.Debug("parsed dataset", slog.Int("elements", len(ds.Elements)))
	return ds, nil
}

// convertElements maps parsed elements into a Dataset. charset is the
// SpecificCharacterSet inherited from the enclosing dataset.
func convertElements(elems []*dicom.Element, charset string) *Dataset {
	ds := &Dataset{Elements: make(map[Tag]*Element, len(elems))}
	for _, e := range elems {
		if e != nil && e.Value != nil && e.Tag.Group == tag.SpecificCharacterSet.Group &&
			e.Tag.Element == tag.SpecificCharacterSet.Element {
			if v, ok := e.Value.GetValue().([]string); ok {
				charset = strings.Join(v, "\\")
			}
		}
	}
	var pixel []*dicom.Element
	for _, e := range elems {
		if e == nil || e.Value == nil {
			continue
		}
		if e.Value.ValueType() == dicom.PixelData {
			// packing native frames needs BitsAllocated from the same level
			pixel = append(pixel, e)
			continue
		}
		t := Tag{Group: e.Tag.Group, Element: e.Tag.Element}
		vr, value := e.RawValueRepresentation, convertValue(e, charset)
		if b, ok := value.([]byte); ok && vr == "UN" && textVRs[tag.VR(t)] {
			// unknown-VR text from implicit streams
			if s, err := DecodeString(b, charset); err == nil {
				vr, value = tag.VR(t), s
			}
		}
		ds.SetVR(t, vr, value)
	}
	for _, e := range pixel {
		t := Tag{Group: e.Tag.Group, Element: e.Tag.Element}
		info, ok := e.Value.GetValue().(dicom.PixelDataInfo)
		if !ok {
			slog.Warn("unexpected pixel data value", slog.String("tag", t.String()))
			continue
		}
		pd, err := convertPixelData(info, ds.IntOr(tag.BitsAllocated, 16))
		if err != nil {
			slog.Warn("dropping unreadable pixel data", slog.String("tag", t.String()), slog.Any("err", err))
			continue
		}
		vr := e.RawValueRepresentation
		if pd.IsEncapsulated {
			vr = "OB"
		}
		ds.SetVR(t, vr, pd)
	}
	return ds
}

func convertValue(e *dicom.Element, charset string) interface{} {
	switch e.Value.ValueType() {
	case dicom.Strings:
		v, _ := e.Value.GetValue().([]string)
		if len(v) == 1 {
			return v[0]
		}
		return v
	case dicom.Ints:
		v, _ := e.Value.GetValue().([]int)
		if len(v) == 1 {
			return v[0]
		}
		return v
	case dicom.Floats:
		v, _ := e.Value.GetValue().([]float64)
		if len(v) == 1 && e.RawValueRepresentation != "OF" && e.RawValueRepresentation != "OD" {
			return v[0]
		}
		return v
	case dicom.Bytes:
		v, _ := e.Value.GetValue().([]byte)
		return v
	case dicom.Sequences:
		items, _ := e.Value.GetValue().([]*dicom.SequenceItemValue)
		out := make([]*Dataset, 0, len(items))
		for _, item := range items {
			children, _ := item.GetValue().([]*dicom.Element)
			out = append(out, convertElements(children, charset))
		}
		return out
	}
	return e.Value.GetValue()
}

func convertPixelData(info dicom.PixelDataInfo, bitsAllocated int) (*PixelData, error) {
	pd := &PixelData{IsEncapsulated: info.IsEncapsulated, Offsets: info.Offsets}
	for i, f := range info.Frames {
		if f == nil {
			continue
		}
		if f.Encapsulated {
			pd.IsEncapsulated = true
			pd.Frames = append(pd.Frames, Frame{CompressedData: f.EncapsulatedData.Data})
			continue
		}
		if f.NativeData == nil {
			return nil, fmt.Errorf("frame %d has no native data", i)
		}
		data, err := packNative(f.NativeData, bitsAllocated)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		pd.Frames = append(pd.Frames, Frame{Data: data})
	}
	return pd, nil
}

type nativeFrame interface {
	Rows() int
	Cols() int
	GetPixel(x, y int) ([]int, error)
}

// packNative re-serializes decoded samples as little endian words so the
// rest of the module sees the stored bit patterns, overlay bits included.
func packNative(nf nativeFrame, bitsAllocated int) ([]byte, error) {
	rows, cols := nf.Rows(), nf.Cols()
	bytesPer := (bitsAllocated + 7) / 8
	if bitsAllocated == 1 {
		bytesPer = 1
	}
	var buf bytes.Buffer
	word := make([]byte, 4)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px, err := nf.GetPixel(x, y)
			if err != nil {
				return nil, err
			}
			for _, s := range px {
				switch bytesPer {
				case 1:
					buf.WriteByte(byte(s))
				case 2:
					binary.LittleEndian.PutUint16(word, uint16(s))
					buf.Write(word[:2])
				default:
					binary.LittleEndian.PutUint32(word, uint32(s))
					buf.Write(word[:4])
				}
			}
		}
	}
	return buf.Bytes(), nil
}
