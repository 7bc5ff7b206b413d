// Package transfer defines DICOM Transfer Syntaxes, decides which syntax a
// frame can actually be written under, and builds the codec parameters for
// the chosen syntax.
package transfer

import "errors"

var (
	// ErrUnsupportedSyntax is returned when a syntax cannot be written or has
	// no codec parameters.
	ErrUnsupportedSyntax = errors.New("transfer: unsupported transfer syntax")
	// ErrInvalidParameter is returned for out of range codec parameters
	ErrInvalidParameter = errors.New("transfer: invalid parameter")
)

// Syntax represents a DICOM Transfer Syntax UID
type Syntax string

// Standard Transfer Syntaxes
const (
	// Uncompressed
	ImplicitVRLittleEndian Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian Syntax = "1.2.840.10008.1.2.1"
	DeflatedExplicitVR     Syntax = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian    Syntax = "1.2.840.10008.1.2.2" // Retired

	// JPEG lossy
	JPEGBaseline            Syntax = "1.2.840.10008.1.2.4.50"
	JPEGExtended            Syntax = "1.2.840.10008.1.2.4.51"
	JPEGExtended35          Syntax = "1.2.840.10008.1.2.4.52" // Retired
	JPEGSpectralSelection   Syntax = "1.2.840.10008.1.2.4.53" // Retired
	JPEGSpectralSelection79 Syntax = "1.2.840.10008.1.2.4.54" // Retired
	JPEGFullProgression     Syntax = "1.2.840.10008.1.2.4.55" // Retired
	JPEGFullProgression1113 Syntax = "1.2.840.10008.1.2.4.56" // Retired

	// JPEG lossless
	JPEGLossless           Syntax = "1.2.840.10008.1.2.4.57"
	JPEGLossless15         Syntax = "1.2.840.10008.1.2.4.58" // Retired
	JPEGLosslessFirstOrder Syntax = "1.2.840.10008.1.2.4.70" // SV1, most common

	// JPEG-LS
	JPEGLSLossless     Syntax = "1.2.840.10008.1.2.4.80"
	JPEGLSNearLossless Syntax = "1.2.840.10008.1.2.4.81"

	// JPEG 2000
	JPEG2000Lossless      Syntax = "1.2.840.10008.1.2.4.90"
	JPEG2000              Syntax = "1.2.840.10008.1.2.4.91"
	JPEG2000Part2Lossless Syntax = "1.2.840.10008.1.2.4.92"
	JPEG2000Part2         Syntax = "1.2.840.10008.1.2.4.93"

	// Not writable here
	JPIPReferenced         Syntax = "1.2.840.10008.1.2.4.94"
	JPIPReferencedDeflate  Syntax = "1.2.840.10008.1.2.4.95"
	MPEG2MainProfile       Syntax = "1.2.840.10008.1.2.4.100"
	MPEG2HighProfile       Syntax = "1.2.840.10008.1.2.4.101"
	MPEG4HighProfile       Syntax = "1.2.840.10008.1.2.4.102"
	MPEG4BDHighProfile     Syntax = "1.2.840.10008.1.2.4.103"
	MPEG4HighProfile2D     Syntax = "1.2.840.10008.1.2.4.104"
	MPEG4HighProfile3D     Syntax = "1.2.840.10008.1.2.4.105"
	MPEG4StereoHighProfile Syntax = "1.2.840.10008.1.2.4.106"
	HEVCMainProfile        Syntax = "1.2.840.10008.1.2.4.107"
	HEVCMain10Profile      Syntax = "1.2.840.10008.1.2.4.108"

	// Other
	RLELossless Syntax = "1.2.840.10008.1.2.5"

	JPEGLosslessSV1 = JPEGLosslessFirstOrder
)

// Family is the codec family of a transfer syntax
type Family int

const (
	Native Family = iota
	JPEGBaselineFamily
	JPEGExtendedFamily
	JPEGSpectralFamily
	JPEGProgressiveFamily
	JPEGLosslessFamily
	JPEGLSFamily
	JPEG2000Family
	RLEFamily
	Video
	Unsupported
)

var familyNames = [...]string{
	Native:                "NATIVE",
	JPEGBaselineFamily:    "JPEG_BASELINE",
	JPEGExtendedFamily:    "JPEG_EXTENDED",
	JPEGSpectralFamily:    "JPEG_SPECTRAL",
	JPEGProgressiveFamily: "JPEG_PROGRESSIVE",
	JPEGLosslessFamily:    "JPEG_LOSSLESS",
	JPEGLSFamily:          "JPEG_LS",
	JPEG2000Family:        "JPEG_2000",
	RLEFamily:             "RLE",
	Video:                 "VIDEO",
	Unsupported:           "UNSUPPORTED",
}

func (f Family) String() string {
	if f >= 0 && int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "UNSUPPORTED"
}

// IsJPEG reports whether the family is one of the ISO 10918 processes
func (f Family) IsJPEG() bool {
	return f >= JPEGBaselineFamily && f <= JPEGLosslessFamily
}

// adaptable families are rewritten to SV1 for samples they cannot hold
func (f Family) adaptable() bool {
	return f == JPEGBaselineFamily || f == JPEGExtendedFamily || f == JPEGSpectralFamily
}

// Profile is the static description of a transfer syntax
type Profile struct {
	UID                   Syntax
	Name                  string
	Family                Family
	Lossless              bool
	DefaultPrediction     int
	DefaultPointTransform int
	Encapsulated          bool
	ExplicitVR            bool
	LittleEndian          bool
	Retired               bool
}

var profiles = []Profile{
	{UID: ImplicitVRLittleEndian, Name: "Implicit VR Little Endian", Family: Native, Lossless: true, LittleEndian: true},
	{UID: ExplicitVRLittleEndian, Name: "Explicit VR Little Endian", Family: Native, Lossless: true, ExplicitVR: true, LittleEndian: true},
	{UID: DeflatedExplicitVR, Name: "Deflated Explicit VR Little Endian", Family: Native, Lossless: true, ExplicitVR: true, LittleEndian: true},
	{UID: ExplicitVRBigEndian, Name: "Explicit VR Big Endian (Retired)", Family: Native, Lossless: true, ExplicitVR: true, Retired: true},

	{UID: JPEGBaseline, Name: "JPEG Baseline (Process 1)", Family: JPEGBaselineFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEGExtended, Name: "JPEG Extended (Process 2 & 4)", Family: JPEGExtendedFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEGExtended35, Name: "JPEG Extended (Process 3 & 5)", Family: JPEGExtendedFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},
	{UID: JPEGSpectralSelection, Name: "JPEG Spectral Selection (Process 6 & 8)", Family: JPEGSpectralFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},
	{UID: JPEGSpectralSelection79, Name: "JPEG Spectral Selection (Process 7 & 9)", Family: JPEGSpectralFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},
	{UID: JPEGFullProgression, Name: "JPEG Full Progression (Process 10 & 12)", Family: JPEGProgressiveFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},
	{UID: JPEGFullProgression1113, Name: "JPEG Full Progression (Process 11 & 13)", Family: JPEGProgressiveFamily, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},

	{UID: JPEGLossless, Name: "JPEG Lossless (Process 14)", Family: JPEGLosslessFamily, Lossless: true, DefaultPrediction: 6, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEGLossless15, Name: "JPEG Lossless (Process 15)", Family: JPEGLosslessFamily, Lossless: true, DefaultPrediction: 6, Encapsulated: true, ExplicitVR: true, LittleEndian: true, Retired: true},
	{UID: JPEGLosslessFirstOrder, Name: "JPEG Lossless First-Order (Process 14, SV1)", Family: JPEGLosslessFamily, Lossless: true, DefaultPrediction: 1, Encapsulated: true, ExplicitVR: true, LittleEndian: true},

	{UID: JPEGLSLossless, Name: "JPEG-LS Lossless", Family: JPEGLSFamily, Lossless: true, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEGLSNearLossless, Name: "JPEG-LS Near-Lossless", Family: JPEGLSFamily, Encapsulated: true, ExplicitVR: true, LittleEndian: true},

	{UID: JPEG2000Lossless, Name: "JPEG 2000 Lossless", Family: JPEG2000Family, Lossless: true, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEG2000, Name: "JPEG 2000", Family: JPEG2000Family, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEG2000Part2Lossless, Name: "JPEG 2000 Part 2 Multi-component Lossless", Family: JPEG2000Family, Lossless: true, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: JPEG2000Part2, Name: "JPEG 2000 Part 2 Multi-component", Family: JPEG2000Family, Encapsulated: true, ExplicitVR: true, LittleEndian: true},

	{UID: JPIPReferenced, Name: "JPIP Referenced", Family: Unsupported, ExplicitVR: true, LittleEndian: true},
	{UID: JPIPReferencedDeflate, Name: "JPIP Referenced Deflate", Family: Unsupported, ExplicitVR: true, LittleEndian: true},

	{UID: MPEG2MainProfile, Name: "MPEG2 Main Profile / Main Level", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG2HighProfile, Name: "MPEG2 Main Profile / High Level", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG4HighProfile, Name: "MPEG-4 AVC/H.264 High Profile / Level 4.1", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG4BDHighProfile, Name: "MPEG-4 AVC/H.264 BD-compatible High Profile / Level 4.1", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG4HighProfile2D, Name: "MPEG-4 AVC/H.264 High Profile / Level 4.2 For 2D Video", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG4HighProfile3D, Name: "MPEG-4 AVC/H.264 High Profile / Level 4.2 For 3D Video", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: MPEG4StereoHighProfile, Name: "MPEG-4 AVC/H.264 Stereo High Profile / Level 4.2", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: HEVCMainProfile, Name: "HEVC/H.265 Main Profile / Level 5.1", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
	{UID: HEVCMain10Profile, Name: "HEVC/H.265 Main 10 Profile / Level 5.1", Family: Video, Encapsulated: true, ExplicitVR: true, LittleEndian: true},

	{UID: RLELossless, Name: "RLE Lossless", Family: RLEFamily, Lossless: true, Encapsulated: true, ExplicitVR: true, LittleEndian: true},
}

var profileByUID = func() map[Syntax]Profile {
	m := make(map[Syntax]Profile, len(profiles))
	for _, p := range profiles {
		m[p.UID] = p
	}
	return m
}()

// Lookup returns the profile of a known syntax
func Lookup(s Syntax) (Profile, bool) {
	p, ok := profileByUID[s]
	return p, ok
}

// Profiles returns every known profile in table order
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Family returns the codec family; unknown UIDs are Unsupported
func (s Syntax) Family() Family {
	if p, ok := profileByUID[s]; ok {
		return p.Family
	}
	return Unsupported
}

// IsExplicitVR returns true if this transfer syntax uses explicit VR
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian returns true if this transfer syntax uses little endian byte order
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// IsEncapsulated returns true if pixel data is encapsulated (compressed)
func (s Syntax) IsEncapsulated() bool {
	if p, ok := profileByUID[s]; ok {
		return p.Encapsulated
	}
	return true
}

// IsLossless reports whether the syntax preserves every sample exactly
func (s Syntax) IsLossless() bool {
	p, ok := profileByUID[s]
	return ok && p.Lossless
}

// Name returns a human-readable name for the transfer syntax
func (s Syntax) Name() string {
	if p, ok := profileByUID[s]; ok {
		return p.Name
	}
	return string(s)
}

// FromUID converts a UID string to a Syntax
func FromUID(uid string) Syntax {
	return Syntax(uid)
}
