package dcm

import (
	"fmt"

	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
)

// ImplementationClassUID identifies files written by this module
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.8.498.7"
	ImplementationVersionName = "DCMIMAGE_1"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// MustDataset is NewDataset for fixed option lists known to be valid
func MustDataset(opts ...Option) *Dataset {
	ds, err := NewDataset(opts...)
	if err != nil {
		panic(err)
	}
	return ds
}

// WithElement adds a single element using the dictionary VR
func WithElement(t tag.Tag, value interface{}) Option {
	return func(ds *Dataset) error {
		ds.Set(t, value)
		return nil
	}
}

// WithVR adds a single element with an explicit VR
func WithVR(t tag.Tag, vr string, value interface{}) Option {
	return func(ds *Dataset) error {
		if len(vr) != 2 {
			return fmt.Errorf("invalid VR %q for %v", vr, t)
		}
		ds.SetVR(t, vr, value)
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		ds.SetVR(t, "SQ", items)
		return nil
	}
}

// WithFileMeta adds standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID, transferSyntax string) Option {
	return func(ds *Dataset) error {
		ds.Set(tag.FileMetaInformationVersion, []byte{0x00, 0x01})
		ds.Set(tag.MediaStorageSOPClassUID, sopClassUID)
		ds.Set(tag.MediaStorageSOPInstanceUID, sopInstanceUID)
		ds.Set(tag.TransferSyntaxUID, transferSyntax)
		ds.Set(tag.ImplementationClassUID, ImplementationClassUID)
		ds.Set(tag.ImplementationVersionName, ImplementationVersionName)
		return nil
	}
}

// WithNativeFrames adds uncompressed pixel data, one byte slice per frame
func WithNativeFrames(bitsAllocated int, frames ...[]byte) Option {
	return func(ds *Dataset) error {
		pd := &PixelData{Frames: make([]Frame, len(frames))}
		for i, f := range frames {
			pd.Frames[i] = Frame{Data: f}
		}
		vr := "OB"
		if bitsAllocated > 8 {
			vr = "OW"
		}
		ds.SetVR(tag.PixelData, vr, pd)
		return nil
	}
}

// WithEncapsulatedFrames adds compressed pixel data, one fragment per frame.
// Odd-length fragments are padded and the Basic Offset Table is filled in.
func WithEncapsulatedFrames(frames ...[]byte) Option {
	return func(ds *Dataset) error {
		ds.SetVR(tag.PixelData, "OB", NewEncapsulated(frames))
		return nil
	}
}

// NewEncapsulated builds encapsulated pixel data with a Basic Offset Table
func NewEncapsulated(frames [][]byte) *PixelData {
	pd := &PixelData{
		IsEncapsulated: true,
		Frames:         make([]Frame, len(frames)),
		Offsets:        make([]uint32, len(frames)),
	}
	offset := uint32(0)
	for i, data := range frames {
		if len(data)%2 != 0 {
			data = append(data, 0x00)
		}
		pd.Offsets[i] = offset
		pd.Frames[i] = Frame{CompressedData: data}
		offset += uint32(len(data)) + 8
	}
	return pd
}

// WithOverlay adds an overlay plane in the given slot (0..15). data is
// packed one bit per pixel, least significant bit first.
func WithOverlay(slot, rows, cols int, origin [2]int, data []byte) Option {
	return func(ds *Dataset) error {
		if slot < 0 || slot >= tag.OverlaySlots {
			return fmt.Errorf("overlay slot %d out of range", slot)
		}
		ds.Set(tag.Overlay(tag.OverlayRows, slot), rows)
		ds.Set(tag.Overlay(tag.OverlayColumns, slot), cols)
		ds.Set(tag.Overlay(tag.OverlayType, slot), "G")
		ds.Set(tag.Overlay(tag.OverlayOrigin, slot), []int{origin[0], origin[1]})
		ds.Set(tag.Overlay(tag.OverlayBitsAllocated, slot), 1)
		ds.Set(tag.Overlay(tag.OverlayBitPosition, slot), 0)
		if data != nil {
			ds.Set(tag.Overlay(tag.OverlayData, slot), data)
		}
		return nil
	}
}
