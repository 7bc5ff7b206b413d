package transfer

import (
	"fmt"
	"image"
)

// JPEG coding modes carried in CodecParams.JPEGMode
const (
	ModeBaseline    = 0
	ModeExtended    = 1
	ModeSpectral    = 2
	ModeProgressive = 3
	ModeLossless    = 4
)

// CodecParams is the configuration handed to an encoder. The syntax, family
// and losslessness are fixed at Build time; the rest can be tuned.
type CodecParams struct {
	uid      Syntax
	family   Family
	lossless bool

	quality        int
	nearLossless   int
	ratioFactor    float64
	prediction     int
	pointTransform int
	jpegMode       int
	region         *image.Rectangle
}

// Build returns the default codec parameters for a resolved syntax.
// Native, deflated, RLE, video and unknown syntaxes have none.
func Build(uid Syntax) (*CodecParams, error) {
	p, ok := Lookup(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSyntax, uid)
	}
	cp := &CodecParams{
		uid:            uid,
		family:         p.Family,
		lossless:       p.Lossless,
		prediction:     p.DefaultPrediction,
		pointTransform: p.DefaultPointTransform,
	}
	switch p.Family {
	case JPEGBaselineFamily:
		cp.jpegMode = ModeBaseline
	case JPEGExtendedFamily:
		cp.jpegMode = ModeExtended
	case JPEGSpectralFamily:
		cp.jpegMode = ModeSpectral
	case JPEGProgressiveFamily:
		cp.jpegMode = ModeProgressive
	case JPEGLosslessFamily:
		cp.jpegMode = ModeLossless
	case JPEGLSFamily, JPEG2000Family:
	default:
		return nil, fmt.Errorf("%w: %s has no codec parameters", ErrUnsupportedSyntax, p.Name)
	}
	if !cp.lossless {
		cp.quality = 85
		cp.nearLossless = 2
		cp.ratioFactor = 10
	}
	return cp, nil
}

// UID returns the transfer syntax the parameters were built for
func (c *CodecParams) UID() Syntax { return c.uid }

// Family returns the codec family
func (c *CodecParams) Family() Family { return c.family }

// Lossless reports whether the compression is lossless
func (c *CodecParams) Lossless() bool { return c.lossless }

// Quality is the lossy quality in 1..100; 0 for lossless syntaxes
func (c *CodecParams) Quality() int { return c.quality }

// NearLosslessError is the JPEG-LS NEAR parameter
func (c *CodecParams) NearLosslessError() int { return c.nearLossless }

// CompressionRatioFactor is the JPEG 2000 target ratio
func (c *CodecParams) CompressionRatioFactor() float64 { return c.ratioFactor }

// Prediction is the JPEG lossless predictor selection value
func (c *CodecParams) Prediction() int { return c.prediction }

// PointTransform is the JPEG lossless point transform
func (c *CodecParams) PointTransform() int { return c.pointTransform }

// JPEGMode is one of the Mode constants
func (c *CodecParams) JPEGMode() int { return c.jpegMode }

// SourceRegion returns the encoded sub-region, if one was set
func (c *CodecParams) SourceRegion() (image.Rectangle, bool) {
	if c.region == nil {
		return image.Rectangle{}, false
	}
	return *c.region, true
}

// SetQuality sets the lossy quality (0..100)
func (c *CodecParams) SetQuality(q int) error {
	if q < 0 || q > 100 {
		return fmt.Errorf("%w: quality %d outside 0..100", ErrInvalidParameter, q)
	}
	c.quality = q
	return nil
}

// SetNearLosslessError sets the JPEG-LS NEAR value; negative values are refused
func (c *CodecParams) SetNearLosslessError(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: near-lossless error %d", ErrInvalidParameter, n)
	}
	c.nearLossless = n
	return nil
}

// SetCompressionRatioFactor sets the JPEG 2000 target ratio
func (c *CodecParams) SetCompressionRatioFactor(f float64) error {
	if f < 0 {
		return fmt.Errorf("%w: compression ratio %v", ErrInvalidParameter, f)
	}
	c.ratioFactor = f
	return nil
}

// SetPrediction sets the lossless predictor (1..7)
func (c *CodecParams) SetPrediction(p int) error {
	if p < 1 || p > 7 {
		return fmt.Errorf("%w: prediction %d outside 1..7", ErrInvalidParameter, p)
	}
	c.prediction = p
	return nil
}

// SetPointTransform sets the lossless point transform (0..15)
func (c *CodecParams) SetPointTransform(pt int) error {
	if pt < 0 || pt > 15 {
		return fmt.Errorf("%w: point transform %d outside 0..15", ErrInvalidParameter, pt)
	}
	c.pointTransform = pt
	return nil
}

// SetJPEGMode overrides the JPEG coding mode
func (c *CodecParams) SetJPEGMode(m int) error {
	if m < ModeBaseline || m > ModeLossless {
		return fmt.Errorf("%w: jpeg mode %d", ErrInvalidParameter, m)
	}
	c.jpegMode = m
	return nil
}

// SetSourceRegion restricts encoding to a sub-region of the frame
func (c *CodecParams) SetSourceRegion(x, y, width, height int) error {
	if x < 0 || y < 0 || width <= 0 || height <= 0 {
		return fmt.Errorf("%w: source region %d,%d %dx%d", ErrInvalidParameter, x, y, width, height)
	}
	r := image.Rect(x, y, x+width, y+height)
	c.region = &r
	return nil
}

func (c *CodecParams) String() string {
	return fmt.Sprintf("%s[%s lossless=%t quality=%d near=%d ratio=%v prediction=%d pt=%d mode=%d]",
		c.uid.Name(), c.family, c.lossless, c.quality, c.nearLossless, c.ratioFactor,
		c.prediction, c.pointTransform, c.jpegMode)
}
