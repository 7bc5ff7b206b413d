package codec

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/transfer"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// LoadFrame returns frame frameIndex of ds as stored values, decoding
// encapsulated pixel data with the codec registered for the dataset's
// transfer syntax.
func LoadFrame(ds *dcm.Dataset, desc *pixel.Descriptor, frameIndex int) (*raster.Matrix, error) {
	if desc.Float {
		return pixel.NativeFrame(ds, desc, frameIndex)
	}
	pd, ok := ds.PixelData()
	if !ok {
		return nil, fmt.Errorf("%w: no pixel data", pixel.ErrInvalidDescriptor)
	}
	if !pd.IsEncapsulated {
		return pixel.NativeFrame(ds, desc, frameIndex)
	}
	if frameIndex < 0 || frameIndex >= len(pd.Frames) {
		return nil, fmt.Errorf("%w: frame %d of %d", pixel.ErrInvalidDescriptor, frameIndex, len(pd.Frames))
	}
	ts := transfer.FromUID(desc.TransferSyntax)
	c, err := Lookup(ts)
	if err != nil {
		return nil, err
	}
	img, err := c.Decode(pd.Frames[frameIndex].CompressedData, desc.Columns, desc.Rows)
	if err != nil {
		return nil, fmt.Errorf("%s decode frame %d: %w", c.Name(), frameIndex, err)
	}
	m, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	if m.Width != desc.Columns || m.Height != desc.Rows {
		slog.Debug("decoded frame size differs from descriptor",
			slog.Int("frame", frameIndex),
			slog.Int("width", m.Width),
			slog.Int("height", m.Height),
			slog.Int("columns", desc.Columns),
			slog.Int("rows", desc.Rows))
	}
	return pixel.NormalizeDecoded(m, desc), nil
}

// EncodeFrame compresses a matrix under the syntax of params. params may be
// nil only for RLE, which is looked up through ts.
func EncodeFrame(m *raster.Matrix, ts transfer.Syntax, params *transfer.CodecParams) ([]byte, error) {
	if params != nil {
		ts = params.UID()
		if r, ok := params.SourceRegion(); ok {
			sub, err := m.SubRegion(r)
			if err != nil {
				return nil, err
			}
			m = sub
		}
	}
	c, err := Lookup(ts)
	if err != nil {
		return nil, err
	}
	img, err := m.Image()
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, img, params); err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	return buf.Bytes(), nil
}
