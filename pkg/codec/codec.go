// Package codec maps transfer syntaxes to the entropy coders that read and
// write encapsulated frames.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sort"
	"sync"

	"github.com/jpfielding/dcmimage/pkg/dcm/transfer"
	"github.com/jpfielding/jpegs/pkg/compress/jpeg2k"
	"github.com/jpfielding/jpegs/pkg/compress/jpegli"
	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
	"github.com/jpfielding/jpegs/pkg/compress/rle"
)

// ErrCodecNotFound is returned when no codec is registered for a syntax. It
// wraps transfer.ErrUnsupportedSyntax.
var ErrCodecNotFound = fmt.Errorf("%w: no codec registered", transfer.ErrUnsupportedSyntax)

// Codec compresses and decompresses single frames
type Codec interface {
	// Encode compresses img to w. params may be nil for syntaxes without
	// codec parameters (RLE).
	Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error
	// Decode decompresses one frame; width/height are needed by RLE
	Decode(data []byte, width, height int) (image.Image, error)
	// Name returns the codec identifier (e.g., "jpeg-ls")
	Name() string
}

// jpegBaselineCodec covers 8-bit lossy JPEG (processes 1 and 2/4)
type jpegBaselineCodec struct{}

func (c *jpegBaselineCodec) Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error {
	opts := &jpeg.Options{Quality: jpeg.DefaultQuality}
	if params != nil && params.Quality() > 0 {
		opts.Quality = params.Quality()
	}
	return jpeg.Encode(w, img, opts)
}

func (c *jpegBaselineCodec) Decode(data []byte, width, height int) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}

func (c *jpegBaselineCodec) Name() string {
	return "jpeg-baseline"
}

// jpegLiCodec implements JPEG Lossless (process 14, any predictor)
type jpegLiCodec struct{}

func (c *jpegLiCodec) Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error {
	opts := &jpegli.Options{Predictor: 1}
	if params != nil {
		opts.Predictor = params.Prediction()
		opts.PointTransform = params.PointTransform()
	}
	return jpegli.Encode(w, img, opts)
}

func (c *jpegLiCodec) Decode(data []byte, width, height int) (image.Image, error) {
	return jpegli.Decode(bytes.NewReader(data))
}

func (c *jpegLiCodec) Name() string {
	return "jpeg-li"
}

// jpegLSCodec implements JPEG-LS lossless and near-lossless
type jpegLSCodec struct{}

func (c *jpegLSCodec) Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error {
	opts := &jpegls.Options{}
	if params != nil && !params.Lossless() {
		opts.Near = params.NearLosslessError()
	}
	return jpegls.Encode(w, img, opts)
}

func (c *jpegLSCodec) Decode(data []byte, width, height int) (image.Image, error) {
	return jpegls.Decode(bytes.NewReader(data))
}

func (c *jpegLSCodec) Name() string {
	return "jpeg-ls"
}

// jpeg2kCodec implements JPEG 2000 with the reversible 5/3 wavelet
type jpeg2kCodec struct{}

// Encode always writes a reversible stream. The encoder has no rate control,
// so CompressionRatioFactor is not applied and 4.91 output is lossless in
// content even though the dataset is marked lossy.
func (c *jpeg2kCodec) Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error {
	opts := jpeg2k.DefaultOptions()
	if _, gray := img.(*image.Gray); gray {
		opts.UseMCT = false
	}
	if _, gray := img.(*image.Gray16); gray {
		opts.UseMCT = false
	}
	return jpeg2k.Encode(w, img, opts)
}

func (c *jpeg2kCodec) Decode(data []byte, width, height int) (image.Image, error) {
	return jpeg2k.Decode(bytes.NewReader(data))
}

func (c *jpeg2kCodec) Name() string {
	return "jpeg-2000"
}

// rleCodec implements RLE Lossless
type rleCodec struct{}

func (c *rleCodec) Encode(w io.Writer, img image.Image, params *transfer.CodecParams) error {
	return rle.Encode(w, img)
}

func (c *rleCodec) Decode(data []byte, width, height int) (image.Image, error) {
	return rle.Decode(data, width, height)
}

func (c *rleCodec) Name() string {
	return "rle"
}

var (
	mu       sync.RWMutex
	registry = map[transfer.Syntax]Codec{
		transfer.JPEGBaseline:           &jpegBaselineCodec{},
		transfer.JPEGExtended:           &jpegBaselineCodec{},
		transfer.JPEGLossless:           &jpegLiCodec{},
		transfer.JPEGLossless15:         &jpegLiCodec{},
		transfer.JPEGLosslessFirstOrder: &jpegLiCodec{},
		transfer.JPEGLSLossless:         &jpegLSCodec{},
		transfer.JPEGLSNearLossless:     &jpegLSCodec{},
		transfer.JPEG2000Lossless:       &jpeg2kCodec{},
		transfer.JPEG2000:               &jpeg2kCodec{},
		transfer.RLELossless:            &rleCodec{},
	}
)

// Lookup returns the codec for a transfer syntax
func Lookup(ts transfer.Syntax) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[ts]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrCodecNotFound, ts, ts.Name())
	}
	return c, nil
}

// Register adds or replaces the codec for a transfer syntax
func Register(ts transfer.Syntax, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registry[ts] = c
}

// Syntaxes lists the transfer syntaxes with a registered codec
func Syntaxes() []transfer.Syntax {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]transfer.Syntax, 0, len(registry))
	for ts := range registry {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
