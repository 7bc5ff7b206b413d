package dcm

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementGetters(t *testing.T) {
	ds := MustDataset(
		WithElement(tag.Rows, 512),
		WithElement(tag.WindowCenter, []string{"40", "400"}),
		WithElement(tag.WindowWidth, "350.5"),
		WithElement(tag.NumberOfFrames, "3"),
		WithElement(tag.ImageType, []string{"ORIGINAL", "PRIMARY"}),
		WithElement(tag.OverlayOrigin, []int{1, 1}),
	)

	rows, ok := ds.Int(tag.Rows)
	require.True(t, ok)
	assert.Equal(t, 512, rows)
	assert.Equal(t, []float64{40, 400}, ds.Floats(tag.WindowCenter))
	w, ok := ds.Float(tag.WindowWidth)
	require.True(t, ok)
	assert.Equal(t, 350.5, w)
	assert.Equal(t, 3, GetNumberOfFrames(ds))
	assert.Equal(t, "ORIGINAL\\PRIMARY", ds.String(tag.ImageType))
	assert.Equal(t, []string{"ORIGINAL", "PRIMARY"}, ds.Strings(tag.ImageType))
	assert.Equal(t, []int{1, 1}, ds.Ints(tag.OverlayOrigin))
	assert.Equal(t, 7, ds.IntOr(tag.Columns, 7))
	assert.Equal(t, "1.2.840.10008.1.2.1", GetTransferSyntax(ds))
}

func TestGetFloats_RejectsGarbage(t *testing.T) {
	elem := &Element{Tag: tag.WindowCenter, VR: "DS", Value: "abc"}
	_, ok := elem.GetFloats()
	assert.False(t, ok)
}

func TestClone_IsolatesSequences(t *testing.T) {
	item := MustDataset(WithElement(tag.RescaleSlope, 2.0))
	ds := MustDataset(WithSequence(tag.SharedFunctionalGroupsSequence, item))
	cp := ds.Clone()
	cp.Sequence(tag.SharedFunctionalGroupsSequence)[0].Set(tag.RescaleSlope, 3.0)

	v, _ := ds.Sequence(tag.SharedFunctionalGroupsSequence)[0].Float(tag.RescaleSlope)
	assert.Equal(t, 2.0, v)
}

func TestWrite_FileMetaAndOrder(t *testing.T) {
	ds := MustDataset(
		WithFileMeta("1.2.840.10008.5.1.4.1.1.7", "1.2.3", "1.2.840.10008.1.2.1"),
		WithElement(tag.Rows, 2),
		WithElement(tag.Columns, 2),
		WithElement(tag.PatientName, "DOE^JOHN"),
		WithNativeFrames(8, []byte{1, 2, 3, 4}),
	)

	var buf bytes.Buffer
	n, err := Write(&buf, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.Bytes()
	assert.Equal(t, "DICM", string(out[128:132]))
	// (0002,0000) UL 4 <len>
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00, 'U', 'L', 0x04, 0x00}, out[132:140])
	metaLen := binary.LittleEndian.Uint32(out[140:144])
	body := out[144+metaLen:]
	// first body element is PatientName (0010,0010) before Rows (0028,0010)
	assert.Equal(t, []byte{0x10, 0x00, 0x10, 0x00, 'P', 'N'}, body[:6])
	assert.True(t, bytes.HasSuffix(out, []byte{1, 2, 3, 4}))
}

func TestWrite_ShortVRLengthCounted(t *testing.T) {
	ds := MustDataset(WithElement(tag.Rows, 2))
	var buf bytes.Buffer
	n, err := Write(&buf, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
}

func TestWrite_Encapsulated(t *testing.T) {
	ds := MustDataset(WithEncapsulatedFrames([]byte{0xFF, 0xD8, 0xFF}, []byte{0xAA, 0xBB}))
	pd, ok := ds.PixelData()
	require.True(t, ok)
	assert.Equal(t, []uint32{0, 12}, pd.Offsets)

	var buf bytes.Buffer
	_, err := Write(&buf, ds)
	require.NoError(t, err)
	// undefined length OB pixel data ends with a sequence delimiter
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte{0xFE, 0xFF, 0xDD, 0xE0, 0, 0, 0, 0}))
	assert.True(t, bytes.Contains(buf.Bytes(), []byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'B', 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}))
}

func TestWrite_UnsupportedValue(t *testing.T) {
	ds := MustDataset(WithElement(tag.Rows, struct{}{}))
	_, err := Write(&bytes.Buffer{}, ds)
	assert.Error(t, err)
}

func TestEncodeValue(t *testing.T) {
	e := &encoder{}
	tests := []struct {
		name string
		v    interface{}
		vr   string
		want []byte
	}{
		{"US", 258, "US", []byte{0x02, 0x01}},
		{"SS multi", []int{-1, 2}, "SS", []byte{0xFF, 0xFF, 0x02, 0x00}},
		{"IS", 3, "IS", []byte("3 ")},
		{"DS", []float64{40, 400.5}, "DS", []byte("40\\400.5")},
		{"UI pad", "1.2.3", "UI", []byte("1.2.3\x00")},
		{"odd bytes", []byte{1}, "OB", []byte{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, undefined, err := e.encodeValue(tt.v, tt.vr)
			require.NoError(t, err)
			assert.False(t, undefined)
			assert.Equal(t, tt.want, b)
		})
	}
}

func TestFormatDS(t *testing.T) {
	assert.Equal(t, "-1024", FormatDS(-1024))
	assert.LessOrEqual(t, len(FormatDS(1.0/3.0)), 16)
}

func TestCharset(t *testing.T) {
	b, err := EncodeString("Müller", "ISO_IR 100")
	require.NoError(t, err)
	assert.Equal(t, []byte{'M', 0xFC, 'l', 'l', 'e', 'r'}, b)

	s, err := DecodeString(b, "ISO_IR 100")
	require.NoError(t, err)
	assert.Equal(t, "Müller", s)

	_, err = LookupEncoding("ISO_IR 999")
	assert.Error(t, err)
}

func TestNewUID(t *testing.T) {
	a, b := NewUID(), NewUID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "2.25."))
	assert.LessOrEqual(t, len(a), 64)
	assert.Equal(t, UIDFromName("x"), UIDFromName("x"))
}

func TestWithOverlay_SlotRange(t *testing.T) {
	_, err := NewDataset(WithOverlay(16, 2, 2, [2]int{1, 1}, nil))
	assert.Error(t, err)

	ds := MustDataset(WithOverlay(1, 2, 2, [2]int{1, 1}, []byte{0x0F}))
	assert.True(t, ds.Has(tag.Tag{Group: 0x6002, Element: 0x3000}))
}

func TestWriteThenParse(t *testing.T) {
	ds := MustDataset(
		WithFileMeta("1.2.840.10008.5.1.4.1.1.7", "1.2.3.4", "1.2.840.10008.1.2.1"),
		WithElement(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.7"),
		WithElement(tag.SOPInstanceUID, "1.2.3.4"),
		WithElement(tag.SamplesPerPixel, 1),
		WithElement(tag.PhotometricInterpretation, "MONOCHROME2"),
		WithElement(tag.Rows, 2),
		WithElement(tag.Columns, 2),
		WithElement(tag.BitsAllocated, 8),
		WithElement(tag.BitsStored, 8),
		WithElement(tag.HighBit, 7),
		WithElement(tag.PixelRepresentation, 0),
		WithNativeFrames(8, []byte{1, 2, 3, 4}),
	)
	var buf bytes.Buffer
	_, err := Write(&buf, ds)
	require.NoError(t, err)

	back, err := ReadBuffer(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, back.IntOr(tag.Rows, 0))
	assert.Equal(t, "MONOCHROME2", back.String(tag.PhotometricInterpretation))
	pd, ok := back.PixelData()
	require.True(t, ok)
	require.Len(t, pd.Frames, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, pd.Frames[0].Data)
}
