// Package tag defines the DICOM tags used by the rendering and transcoding
// packages, together with a small VR/name dictionary for them.
package tag

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsFileMeta returns true if this tag is in the File Meta Information group
func (t Tag) IsFileMeta() bool {
	return t.Group == 0x0002
}

// Less orders tags by group then element
func (t Tag) Less(o Tag) bool {
	if t.Group != o.Group {
		return t.Group < o.Group
	}
	return t.Element < o.Element
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
)

// SOP Common, General Series/Equipment and references
var (
	SpecificCharacterSet     = Tag{0x0008, 0x0005}
	ImageType                = Tag{0x0008, 0x0008}
	SOPClassUID              = Tag{0x0008, 0x0016}
	SOPInstanceUID           = Tag{0x0008, 0x0018}
	Modality                 = Tag{0x0008, 0x0060}
	StationName              = Tag{0x0008, 0x1010}
	SeriesDescription        = Tag{0x0008, 0x103E}
	ReferencedSeriesSequence = Tag{0x0008, 0x1115}
	ReferencedImageSequence  = Tag{0x0008, 0x1140}
	ReferencedSOPClassUID    = Tag{0x0008, 0x1150}
	ReferencedSOPInstanceUID = Tag{0x0008, 0x1155}
	ReferencedFrameNumber    = Tag{0x0008, 0x1160}
	DerivationDescription    = Tag{0x0008, 0x2111}
	PatientName              = Tag{0x0010, 0x0010}
	PatientID                = Tag{0x0010, 0x0020}
	StudyInstanceUID         = Tag{0x0020, 0x000D}
	SeriesInstanceUID        = Tag{0x0020, 0x000E}
	InstanceNumber           = Tag{0x0020, 0x0013}
)

// Image Pixel Module (Group 0028)
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006} // 0=color-by-pixel, 1=color-by-plane
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	SmallestImagePixelValue   = Tag{0x0028, 0x0106}
	LargestImagePixelValue    = Tag{0x0028, 0x0107}
	PixelPaddingValue         = Tag{0x0028, 0x0120}
	PixelPaddingRangeLimit    = Tag{0x0028, 0x0121}
	PixelData                 = Tag{0x7FE0, 0x0010}
	FloatPixelData            = Tag{0x7FE0, 0x0008}
	DoubleFloatPixelData      = Tag{0x7FE0, 0x0009}
)

// Modality LUT, VOI LUT and palette (Group 0028)
var (
	WindowCenter                 = Tag{0x0028, 0x1050}
	WindowWidth                  = Tag{0x0028, 0x1051}
	RescaleIntercept             = Tag{0x0028, 0x1052}
	RescaleSlope                 = Tag{0x0028, 0x1053}
	RescaleType                  = Tag{0x0028, 0x1054}
	WindowCenterWidthExplanation = Tag{0x0028, 0x1055}
	VOILUTFunction               = Tag{0x0028, 0x1056} // LINEAR, LINEAR_EXACT, SIGMOID
	RedPaletteLUTDescriptor      = Tag{0x0028, 0x1101}
	GreenPaletteLUTDescriptor    = Tag{0x0028, 0x1102}
	BluePaletteLUTDescriptor     = Tag{0x0028, 0x1103}
	RedPaletteLUTData            = Tag{0x0028, 0x1201}
	GreenPaletteLUTData          = Tag{0x0028, 0x1202}
	BluePaletteLUTData           = Tag{0x0028, 0x1203}
	LossyImageCompression        = Tag{0x0028, 0x2110} // 00=lossless, 01=lossy
	LossyImageCompressionRatio   = Tag{0x0028, 0x2112}
	LossyImageCompressionMethod  = Tag{0x0028, 0x2114}
	ModalityLUTSequence          = Tag{0x0028, 0x3000}
	LUTDescriptor                = Tag{0x0028, 0x3002}
	LUTExplanation               = Tag{0x0028, 0x3003}
	ModalityLUTType              = Tag{0x0028, 0x3004}
	LUTData                      = Tag{0x0028, 0x3006}
	VOILUTSequence               = Tag{0x0028, 0x3010}
	SoftcopyVOILUTSequence       = Tag{0x0028, 0x3110}
	FrameVOILUTSequence          = Tag{0x0028, 0x9132}
	PixelValueTransformation     = Tag{0x0028, 0x9145}
)

// Enhanced multi-frame functional groups
var (
	SharedFunctionalGroupsSequence   = Tag{0x5200, 0x9229}
	PerFrameFunctionalGroupsSequence = Tag{0x5200, 0x9230}
)

// Presentation State modules
var (
	PresentationLUTShape                         = Tag{0x2050, 0x0020}
	GraphicLayer                                 = Tag{0x0070, 0x0002}
	GraphicLayerSequence                         = Tag{0x0070, 0x0060}
	GraphicLayerOrder                            = Tag{0x0070, 0x0062}
	GraphicLayerRecommendedDisplayGrayscaleValue = Tag{0x0070, 0x0066}
	GraphicLayerDescription                      = Tag{0x0070, 0x0068}
	ContentLabel                                 = Tag{0x0070, 0x0080}
	ContentDescription                           = Tag{0x0070, 0x0081}
	GraphicLayerRecommendedDisplayCIELabValue    = Tag{0x0070, 0x0401}
)

// Overlay Plane Module, expressed for the first repeating group (6000).
// Use Overlay to address the other 15 slots.
var (
	OverlayRows             = Tag{0x6000, 0x0010}
	OverlayColumns          = Tag{0x6000, 0x0011}
	NumberOfFramesInOverlay = Tag{0x6000, 0x0015}
	OverlayDescription      = Tag{0x6000, 0x0022}
	OverlayType             = Tag{0x6000, 0x0040}
	OverlayOrigin           = Tag{0x6000, 0x0050}
	ImageFrameOrigin        = Tag{0x6000, 0x0051}
	OverlayBitsAllocated    = Tag{0x6000, 0x0100}
	OverlayBitPosition      = Tag{0x6000, 0x0102}
	OverlayActivationLayer  = Tag{0x6000, 0x1001}
	OverlayLabel            = Tag{0x6000, 0x1500}
	OverlayData             = Tag{0x6000, 0x3000}
)

// Sequence delimiters
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// OverlaySlots is the number of repeating overlay groups (6000-601E)
const OverlaySlots = 16

// Overlay returns the overlay tag t moved into the group of slot
func Overlay(t Tag, slot int) Tag {
	return Tag{Group: 0x6000 + uint16(2*slot), Element: t.Element}
}

// IsOverlay reports whether t belongs to one of the 16 overlay groups
func (t Tag) IsOverlay() bool {
	return t.Group >= 0x6000 && t.Group <= 0x601E && t.Group%2 == 0
}
