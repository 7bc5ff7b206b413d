package transfer

import (
	"fmt"

	"github.com/jpfielding/dcmimage/pkg/raster"
)

// Resolve picks the syntax a frame of the given sample kind is actually
// written under when requested is asked for. First match wins:
//
//  1. native syntaxes normalize to Explicit VR Little Endian; big endian is refused
//  2. float samples, video and unsupported families fall back to native
//  3. baseline/extended/spectral JPEG keep 8-bit unsigned samples as requested
//  4. the same families switch to lossless SV1 for wider or signed samples
//  5. everything else (JPEG-LS, JPEG 2000, RLE, lossless, unknown) passes through
func Resolve(bitsStored int, kind raster.Type, requested Syntax) (Syntax, error) {
	p, known := Lookup(requested)
	if known && p.Family == Native {
		if !p.LittleEndian {
			return "", fmt.Errorf("%w: %s cannot be written", ErrUnsupportedSyntax, p.Name)
		}
		return ExplicitVRLittleEndian, nil
	}
	if kind.IsFloat() {
		return ExplicitVRLittleEndian, nil
	}
	if !known {
		return requested, nil
	}
	switch {
	case p.Family == Video || p.Family == Unsupported:
		return ExplicitVRLittleEndian, nil
	case p.Family.adaptable() && kind == raster.TypeU8 && bitsStored <= 8:
		return requested, nil
	case p.Family.adaptable():
		return JPEGLosslessSV1, nil
	}
	return requested, nil
}
