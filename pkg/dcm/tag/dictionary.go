package tag

import (
	"encoding/json"
	"fmt"
)

type entry struct {
	vr   string
	name string
}

var dictionary = map[Tag]entry{
	FileMetaInformationGroupLength: {"UL", "FileMetaInformationGroupLength"},
	FileMetaInformationVersion:     {"OB", "FileMetaInformationVersion"},
	MediaStorageSOPClassUID:        {"UI", "MediaStorageSOPClassUID"},
	MediaStorageSOPInstanceUID:     {"UI", "MediaStorageSOPInstanceUID"},
	TransferSyntaxUID:              {"UI", "TransferSyntaxUID"},
	ImplementationClassUID:         {"UI", "ImplementationClassUID"},
	ImplementationVersionName:      {"SH", "ImplementationVersionName"},

	SpecificCharacterSet:     {"CS", "SpecificCharacterSet"},
	ImageType:                {"CS", "ImageType"},
	SOPClassUID:              {"UI", "SOPClassUID"},
	SOPInstanceUID:           {"UI", "SOPInstanceUID"},
	Modality:                 {"CS", "Modality"},
	StationName:              {"SH", "StationName"},
	SeriesDescription:        {"LO", "SeriesDescription"},
	ReferencedSeriesSequence: {"SQ", "ReferencedSeriesSequence"},
	ReferencedImageSequence:  {"SQ", "ReferencedImageSequence"},
	ReferencedSOPClassUID:    {"UI", "ReferencedSOPClassUID"},
	ReferencedSOPInstanceUID: {"UI", "ReferencedSOPInstanceUID"},
	ReferencedFrameNumber:    {"IS", "ReferencedFrameNumber"},
	DerivationDescription:    {"ST", "DerivationDescription"},
	PatientName:              {"PN", "PatientName"},
	PatientID:                {"LO", "PatientID"},
	StudyInstanceUID:         {"UI", "StudyInstanceUID"},
	SeriesInstanceUID:        {"UI", "SeriesInstanceUID"},
	InstanceNumber:           {"IS", "InstanceNumber"},

	SamplesPerPixel:           {"US", "SamplesPerPixel"},
	PhotometricInterpretation: {"CS", "PhotometricInterpretation"},
	PlanarConfiguration:       {"US", "PlanarConfiguration"},
	NumberOfFrames:            {"IS", "NumberOfFrames"},
	Rows:                      {"US", "Rows"},
	Columns:                   {"US", "Columns"},
	BitsAllocated:             {"US", "BitsAllocated"},
	BitsStored:                {"US", "BitsStored"},
	HighBit:                   {"US", "HighBit"},
	PixelRepresentation:       {"US", "PixelRepresentation"},
	SmallestImagePixelValue:   {"US", "SmallestImagePixelValue"},
	LargestImagePixelValue:    {"US", "LargestImagePixelValue"},
	PixelPaddingValue:         {"US", "PixelPaddingValue"},
	PixelPaddingRangeLimit:    {"US", "PixelPaddingRangeLimit"},
	PixelData:                 {"OW", "PixelData"},
	FloatPixelData:            {"OF", "FloatPixelData"},
	DoubleFloatPixelData:      {"OD", "DoubleFloatPixelData"},

	WindowCenter:                 {"DS", "WindowCenter"},
	WindowWidth:                  {"DS", "WindowWidth"},
	RescaleIntercept:             {"DS", "RescaleIntercept"},
	RescaleSlope:                 {"DS", "RescaleSlope"},
	RescaleType:                  {"LO", "RescaleType"},
	WindowCenterWidthExplanation: {"LO", "WindowCenterWidthExplanation"},
	VOILUTFunction:               {"CS", "VOILUTFunction"},
	RedPaletteLUTDescriptor:      {"US", "RedPaletteColorLookupTableDescriptor"},
	GreenPaletteLUTDescriptor:    {"US", "GreenPaletteColorLookupTableDescriptor"},
	BluePaletteLUTDescriptor:     {"US", "BluePaletteColorLookupTableDescriptor"},
	RedPaletteLUTData:            {"OW", "RedPaletteColorLookupTableData"},
	GreenPaletteLUTData:          {"OW", "GreenPaletteColorLookupTableData"},
	BluePaletteLUTData:           {"OW", "BluePaletteColorLookupTableData"},
	LossyImageCompression:        {"CS", "LossyImageCompression"},
	LossyImageCompressionRatio:   {"DS", "LossyImageCompressionRatio"},
	LossyImageCompressionMethod:  {"CS", "LossyImageCompressionMethod"},
	ModalityLUTSequence:          {"SQ", "ModalityLUTSequence"},
	LUTDescriptor:                {"US", "LUTDescriptor"},
	LUTExplanation:               {"LO", "LUTExplanation"},
	ModalityLUTType:              {"LO", "ModalityLUTType"},
	LUTData:                      {"OW", "LUTData"},
	VOILUTSequence:               {"SQ", "VOILUTSequence"},
	SoftcopyVOILUTSequence:       {"SQ", "SoftcopyVOILUTSequence"},
	FrameVOILUTSequence:          {"SQ", "FrameVOILUTSequence"},
	PixelValueTransformation:     {"SQ", "PixelValueTransformationSequence"},

	SharedFunctionalGroupsSequence:   {"SQ", "SharedFunctionalGroupsSequence"},
	PerFrameFunctionalGroupsSequence: {"SQ", "PerFrameFunctionalGroupsSequence"},

	PresentationLUTShape:                         {"CS", "PresentationLUTShape"},
	GraphicLayer:                                 {"CS", "GraphicLayer"},
	GraphicLayerSequence:                         {"SQ", "GraphicLayerSequence"},
	GraphicLayerOrder:                            {"IS", "GraphicLayerOrder"},
	GraphicLayerRecommendedDisplayGrayscaleValue: {"US", "GraphicLayerRecommendedDisplayGrayscaleValue"},
	GraphicLayerDescription:                      {"LO", "GraphicLayerDescription"},
	ContentLabel:                                 {"CS", "ContentLabel"},
	ContentDescription:                           {"LO", "ContentDescription"},
	GraphicLayerRecommendedDisplayCIELabValue:    {"US", "GraphicLayerRecommendedDisplayCIELabValue"},

	OverlayRows:             {"US", "OverlayRows"},
	OverlayColumns:          {"US", "OverlayColumns"},
	NumberOfFramesInOverlay: {"IS", "NumberOfFramesInOverlay"},
	OverlayDescription:      {"LO", "OverlayDescription"},
	OverlayType:             {"CS", "OverlayType"},
	OverlayOrigin:           {"SS", "OverlayOrigin"},
	ImageFrameOrigin:        {"US", "ImageFrameOrigin"},
	OverlayBitsAllocated:    {"US", "OverlayBitsAllocated"},
	OverlayBitPosition:      {"US", "OverlayBitPosition"},
	OverlayActivationLayer:  {"CS", "OverlayActivationLayer"},
	OverlayLabel:            {"LO", "OverlayLabel"},
	OverlayData:             {"OW", "OverlayData"},
}

func lookup(t Tag) (entry, bool) {
	if t.IsOverlay() {
		t.Group = 0x6000
	}
	e, ok := dictionary[t]
	return e, ok
}

// VR returns the dictionary VR of t; group lengths are UL and unknown tags UN
func VR(t Tag) string {
	if e, ok := lookup(t); ok {
		return e.vr
	}
	if t.Element == 0x0000 {
		return "UL"
	}
	return "UN"
}

// Name returns the keyword of t, or "" when t is not in the dictionary
func Name(t Tag) string {
	e, _ := lookup(t)
	return e.name
}

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
