package dcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
)

// WriteFile writes a dataset to a DICOM Part 10 file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(f, ds)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Write writes a dataset to a writer using Explicit VR Little Endian. The
// File Meta group length is computed; pixel data is written native or
// encapsulated depending on the PixelData value.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}

	// Preamble (128 bytes 0x00) and DICM magic
	if _, err := cw.Write(make([]byte, 128)); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	enc := &encoder{charset: ds.String(tag.SpecificCharacterSet)}

	meta := &Dataset{Elements: map[Tag]*Element{}}
	body := &Dataset{Elements: map[Tag]*Element{}}
	for t, elem := range ds.Elements {
		switch {
		case t == tag.FileMetaInformationGroupLength:
		case t.IsFileMeta():
			meta.Elements[t] = elem
		default:
			body.Elements[t] = elem
		}
	}

	var metaBuf bytes.Buffer
	if _, err := enc.writeBody(&metaBuf, meta); err != nil {
		return cw.Count.Load(), fmt.Errorf("failed to encode file meta: %w", err)
	}
	groupLength := &Element{Tag: tag.FileMetaInformationGroupLength, VR: "UL", Value: metaBuf.Len()}
	if _, err := enc.writeElement(cw, groupLength); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write(metaBuf.Bytes()); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := enc.writeBody(cw, body); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

type encoder struct {
	charset string
}

func (e *encoder) writeBody(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}
	for _, t := range ds.Tags() {
		elem := ds.Elements[t]
		if _, err := e.writeElement(cw, elem); err != nil {
			return cw.Count.Load(), fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return cw.Count.Load(), nil
}

func (e *encoder) writeElement(w io.Writer, elem *Element) (int, error) {
	cw := &CountingWriter{Writer: w}

	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Group); err != nil {
		return int(cw.Count.Load()), err
	}
	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Element); err != nil {
		return int(cw.Count.Load()), err
	}

	vr := elem.VR
	if len(vr) != 2 {
		slog.Warn("Invalid VR length, defaulting to UN", "vr", vr, "tag", elem.Tag)
		vr = "UN"
	}
	if _, err := cw.Write([]byte(vr)); err != nil {
		return int(cw.Count.Load()), err
	}

	valBytes, isUndefinedLength, err := e.encodeValue(elem.Value, vr)
	if err != nil {
		return int(cw.Count.Load()), err
	}

	if isLongVR(vr) {
		// Reserved 2 bytes (0x00)
		if _, err := cw.Write([]byte{0, 0}); err != nil {
			return int(cw.Count.Load()), err
		}
		length := uint32(len(valBytes))
		if isUndefinedLength {
			length = 0xFFFFFFFF
		}
		if err := binary.Write(cw, binary.LittleEndian, length); err != nil {
			return int(cw.Count.Load()), err
		}
	} else {
		if isUndefinedLength {
			return int(cw.Count.Load()), fmt.Errorf("undefined length not supported for Short VR %s", vr)
		}
		if len(valBytes) > math.MaxUint16 {
			return int(cw.Count.Load()), fmt.Errorf("value of %d bytes too long for VR %s", len(valBytes), vr)
		}
		if err := binary.Write(cw, binary.LittleEndian, uint16(len(valBytes))); err != nil {
			return int(cw.Count.Load()), err
		}
	}

	if _, err := cw.Write(valBytes); err != nil {
		return int(cw.Count.Load()), err
	}
	return int(cw.Count.Load()), nil
}

func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UN", "UR", "UT", "UV":
		return true
	}
	return false
}

// encodeValue returns encoded bytes and a bool indicating if undefined
// length is used (sequences, encapsulated pixels)
func (e *encoder) encodeValue(v interface{}, vr string) ([]byte, bool, error) {
	if v == nil {
		return []byte{}, false, nil
	}

	switch val := v.(type) {
	case *PixelData:
		if val.IsEncapsulated {
			return encodeEncapsulatedPixelData(val), true, nil
		}
		return encodeNativePixelData(val), false, nil
	case []*Dataset:
		if vr != "SQ" {
			return nil, false, fmt.Errorf("unexpected []*Dataset for VR %s", vr)
		}
		b, err := e.encodeSequence(val)
		return b, true, err
	case string:
		b, err := e.encodeText([]string{val}, vr)
		return b, false, err
	case []string:
		b, err := e.encodeText(val, vr)
		return b, false, err
	case int:
		b, err := encodeInts([]int{val}, vr)
		return b, false, err
	case []int:
		b, err := encodeInts(val, vr)
		return b, false, err
	case uint16:
		return encodeUint16s([]uint16{val}), false, nil
	case []uint16:
		return encodeUint16s(val), false, nil
	case float64:
		b, err := encodeFloats([]float64{val}, vr)
		return b, false, err
	case []float64:
		b, err := encodeFloats(val, vr)
		return b, false, err
	case []float32:
		b := make([]byte, len(val)*4)
		for i, f := range val {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
		}
		return b, false, nil
	case []byte:
		if len(val)%2 != 0 {
			val = append(append([]byte{}, val...), 0x00)
		}
		return val, false, nil
	}

	return nil, false, fmt.Errorf("unsupported value type %T for VR %s", v, vr)
}

func (e *encoder) encodeText(vals []string, vr string) ([]byte, error) {
	joined := strings.Join(vals, "\\")
	b := []byte(joined)
	if textVRs[vr] && e.charset != "" {
		encoded, err := EncodeString(joined, e.charset)
		if err != nil {
			return nil, err
		}
		b = encoded
	}
	if len(b)%2 != 0 {
		pad := byte(' ')
		if vr == "UI" {
			pad = 0x00
		}
		b = append(b, pad)
	}
	return b, nil
}

func encodeInts(vals []int, vr string) ([]byte, error) {
	var buf bytes.Buffer
	switch vr {
	case "US", "OW":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, uint16(v))
		}
	case "SS":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, int16(v))
		}
	case "UL":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, uint32(v))
		}
	case "SL":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, int32(v))
		}
	case "IS", "DS":
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = strconv.Itoa(v)
		}
		buf.WriteString(strings.Join(strs, "\\"))
		if buf.Len()%2 != 0 {
			buf.WriteByte(' ')
		}
	default:
		return nil, fmt.Errorf("int for VR %s not implemented", vr)
	}
	return buf.Bytes(), nil
}

func encodeUint16s(vals []uint16) []byte {
	b := make([]byte, len(vals)*2)
	for i, u := range vals {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func encodeFloats(vals []float64, vr string) ([]byte, error) {
	var buf bytes.Buffer
	switch vr {
	case "DS", "IS":
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = FormatDS(v)
		}
		buf.WriteString(strings.Join(strs, "\\"))
		if buf.Len()%2 != 0 {
			buf.WriteByte(' ')
		}
	case "FD", "OD":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
		}
	case "FL", "OF":
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(float32(v)))
		}
	default:
		return nil, fmt.Errorf("float64 for VR %s not implemented", vr)
	}
	return buf.Bytes(), nil
}

// FormatDS renders a decimal string value within the 16 byte DS limit
func FormatDS(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	for prec := 15; len(s) > 16 && prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
	}
	return s
}

func (e *encoder) encodeSequence(datasets []*Dataset) ([]byte, error) {
	var buf bytes.Buffer

	for _, ds := range datasets {
		// Item Tag (FFFE, E000)
		buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})

		var dsBuf bytes.Buffer
		if _, err := e.writeBody(&dsBuf, ds); err != nil {
			return nil, fmt.Errorf("failed to encode sequence item: %w", err)
		}
		binary.Write(&buf, binary.LittleEndian, uint32(dsBuf.Len()))
		buf.Write(dsBuf.Bytes())
	}

	// Sequence Delimitation Item (FFFE, E0DD), length 0
	buf.Write([]byte{0xFE, 0xFF, 0xDD, 0xE0})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	return buf.Bytes(), nil
}

func encodeNativePixelData(pd *PixelData) []byte {
	var buf bytes.Buffer
	for _, frame := range pd.Frames {
		buf.Write(frame.Data)
	}
	if buf.Len()%2 != 0 {
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

func encodeEncapsulatedPixelData(pd *PixelData) []byte {
	var buf bytes.Buffer

	// Basic Offset Table item
	buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})
	binary.Write(&buf, binary.LittleEndian, uint32(len(pd.Offsets)*4))
	for _, off := range pd.Offsets {
		binary.Write(&buf, binary.LittleEndian, off)
	}

	// One fragment per frame
	for _, frame := range pd.Frames {
		data := frame.CompressedData
		buf.Write([]byte{0xFE, 0xFF, 0x00, 0xE0})
		binary.Write(&buf, binary.LittleEndian, uint32(len(data)+len(data)%2))
		buf.Write(data)
		if len(data)%2 != 0 {
			buf.WriteByte(0x00)
		}
	}

	// Sequence Delimitation Item
	buf.Write([]byte{0xFE, 0xFF, 0xDD, 0xE0})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	return buf.Bytes()
}

// CountingWriter tracks the bytes successfully written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	if err == nil {
		c.Count.Add(int64(n))
	}
	return n, err
}
