package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/jpfielding/dcmimage/pkg/codec"
	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/dcm/transfer"
	"github.com/jpfielding/dcmimage/pkg/mask"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
	"github.com/jpfielding/dcmimage/pkg/render"
	"golang.org/x/sync/errgroup"
)

// Transcoder re-encodes datasets under a requested transfer syntax
type Transcoder struct {
	syntax  transfer.Syntax
	tune    []func(*transfer.CodecParams) error
	mask    *mask.Spec
	rescale bool
	policy  *render.FloatPolicy
	workers int
}

// Option configures a Transcoder
type Option func(*Transcoder)

// WithQuality sets the lossy JPEG quality (1..100)
func WithQuality(q int) Option {
	return func(t *Transcoder) {
		t.tune = append(t.tune, func(p *transfer.CodecParams) error { return p.SetQuality(q) })
	}
}

// WithNearLossless sets the JPEG-LS NEAR value
func WithNearLossless(n int) Option {
	return func(t *Transcoder) {
		t.tune = append(t.tune, func(p *transfer.CodecParams) error { return p.SetNearLosslessError(n) })
	}
}

// WithRatio sets the JPEG 2000 compression ratio factor
func WithRatio(f float64) Option {
	return func(t *Transcoder) {
		t.tune = append(t.tune, func(p *transfer.CodecParams) error { return p.SetCompressionRatioFactor(f) })
	}
}

// WithPrediction sets the lossless JPEG predictor and point transform
func WithPrediction(predictor, pointTransform int) Option {
	return func(t *Transcoder) {
		t.tune = append(t.tune,
			func(p *transfer.CodecParams) error { return p.SetPrediction(predictor) },
			func(p *transfer.CodecParams) error { return p.SetPointTransform(pointTransform) },
		)
	}
}

// WithMask blanks the regions configured for the dataset's station
func WithMask(s *mask.Spec) Option {
	return func(t *Transcoder) {
		t.mask = s
	}
}

// WithRescale bakes the modality rescale into the written samples
func WithRescale(on bool) Option {
	return func(t *Transcoder) {
		t.rescale = on
	}
}

// WithFloatPolicy sets the float policy consulted when rescaling
func WithFloatPolicy(p *render.FloatPolicy) Option {
	return func(t *Transcoder) {
		t.policy = p
	}
}

// WithWorkers bounds how many frames are decoded or encoded at once
func WithWorkers(n int) Option {
	return func(t *Transcoder) {
		if n > 0 {
			t.workers = n
		}
	}
}

// New returns a Transcoder targeting syntax
func New(syntax transfer.Syntax, opts ...Option) *Transcoder {
	t := &Transcoder{
		syntax:  syntax,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcode returns a copy of ds written under the transcoder's syntax, or
// the closest syntax the frames can be written under. ds is not modified.
func (t *Transcoder) Transcode(ctx context.Context, ds *dcm.Dataset) (*dcm.Dataset, error) {
	desc, err := pixel.NewDescriptor(ds)
	if err != nil {
		return nil, err
	}
	frames, rescaled, err := t.loadFrames(ctx, ds, desc)
	if err != nil {
		return nil, err
	}
	frames = unify(frames)

	l := layoutOf(frames[0], desc)
	resolved, err := transfer.Resolve(l.stored, frames[0].Type, t.syntax)
	if err != nil {
		return nil, err
	}
	if resolved.IsEncapsulated() {
		if _, err := codec.Lookup(resolved); err != nil {
			return nil, err
		}
	}

	out := ds.Clone()
	AdaptAttributes(out, frames[0], desc)
	if rescaled {
		resetRescale(out, desc, frames[0])
	}

	var params *transfer.CodecParams
	if resolved.IsEncapsulated() && resolved.Family() != transfer.RLEFamily {
		if params, err = t.params(resolved); err != nil {
			return nil, err
		}
	}

	rawSize, written := 0, 0
	if resolved.IsEncapsulated() {
		encoded, err := t.encodeFrames(ctx, frames, resolved, params)
		if err != nil {
			return nil, err
		}
		for i, e := range encoded {
			rawSize += len(packNative(frames[i], l))
			written += len(e)
		}
		out.Delete(tag.FloatPixelData)
		out.Delete(tag.DoubleFloatPixelData)
		out.SetVR(tag.PixelData, "OB", dcm.NewEncapsulated(encoded))
	} else {
		written = writeNative(out, frames, l)
		rawSize = written
	}

	out.Set(tag.TransferSyntaxUID, string(resolved))
	if !out.Has(tag.MediaStorageSOPClassUID) {
		out.Set(tag.MediaStorageSOPClassUID, desc.SOPClassUID)
	}
	if params != nil && !params.Lossless() {
		markLossy(out, resolved, rawSize, written)
	}

	slog.Info("transcoded",
		slog.String("sop", out.String(tag.SOPInstanceUID)),
		slog.String("from", desc.TransferSyntax),
		slog.String("to", resolved.Name()),
		slog.Int("frames", len(frames)),
		slog.Int("bytes", written))
	return out, nil
}

// loadFrames decodes and prepares every frame in parallel
func (t *Transcoder) loadFrames(ctx context.Context, ds *dcm.Dataset, desc *pixel.Descriptor) ([]*raster.Matrix, bool, error) {
	n := desc.NumFrames()
	if n == 0 {
		return nil, false, fmt.Errorf("%w: no frames", pixel.ErrInvalidDescriptor)
	}
	frames := make([]*raster.Matrix, n)
	changed := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := codec.LoadFrame(ds, desc, i)
			if err != nil {
				return fmt.Errorf("load frame %d: %w", i, err)
			}
			if t.rescale {
				var status raster.Status
				m, _ = render.StripEmbeddedOverlays(m, desc, i)
				m, status = render.Rescale(m, desc, i, t.policy)
				changed[i] = status == raster.Replaced
			}
			m, _ = mask.Apply(m, t.mask, desc.StationName)
			frames[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	rescaled := false
	for _, c := range changed {
		rescaled = rescaled || c
	}
	return frames, rescaled, nil
}

// encodeFrames compresses every frame in parallel
func (t *Transcoder) encodeFrames(ctx context.Context, frames []*raster.Matrix, ts transfer.Syntax, params *transfer.CodecParams) ([][]byte, error) {
	encoded := make([][]byte, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, m := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := codec.EncodeFrame(m, ts, params)
			if err != nil {
				return fmt.Errorf("encode frame %d: %w", i, err)
			}
			encoded[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}

func (t *Transcoder) params(ts transfer.Syntax) (*transfer.CodecParams, error) {
	p, err := transfer.Build(ts)
	if err != nil {
		return nil, err
	}
	for _, tune := range t.tune {
		if err := tune(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// unify converts frames to a common type when per-frame rescale gave them
// different ones.
func unify(frames []*raster.Matrix) []*raster.Matrix {
	first := frames[0].Type
	lo, hi := first.Range()
	mixed, float := false, first.IsFloat()
	for _, m := range frames[1:] {
		if m.Type == first {
			continue
		}
		mixed = true
		float = float || m.Type.IsFloat()
		l, h := m.Type.Range()
		lo, hi = min(lo, l), max(hi, h)
	}
	if !mixed {
		return frames
	}
	target := raster.TypeF32
	if !float {
		if it, ok := raster.IntegerTypeFor(lo, hi); ok {
			target = it
		}
	}
	out := make([]*raster.Matrix, len(frames))
	for i, m := range frames {
		if m.Type == target {
			out[i] = m
			continue
		}
		out[i] = m.Convert(target)
	}
	return out
}

// writeNative stores frames uncompressed and returns the byte count
func writeNative(ds *dcm.Dataset, frames []*raster.Matrix, l layout) int {
	if l.float {
		var data []byte
		for _, m := range frames {
			data = append(data, packNative(m, l)...)
		}
		ds.Delete(tag.PixelData)
		if l.allocated == 64 {
			ds.Delete(tag.FloatPixelData)
			ds.SetVR(tag.DoubleFloatPixelData, "OD", data)
		} else {
			ds.Delete(tag.DoubleFloatPixelData)
			ds.SetVR(tag.FloatPixelData, "OF", data)
		}
		return len(data)
	}
	pd := &dcm.PixelData{Frames: make([]dcm.Frame, len(frames))}
	size := 0
	for i, m := range frames {
		pd.Frames[i] = dcm.Frame{Data: packNative(m, l)}
		size += len(pd.Frames[i].Data)
	}
	vr := "OB"
	if l.allocated > 8 {
		vr = "OW"
	}
	ds.Delete(tag.FloatPixelData)
	ds.Delete(tag.DoubleFloatPixelData)
	ds.SetVR(tag.PixelData, vr, pd)
	return size
}

// resetRescale marks baked samples as already in output units
func resetRescale(ds *dcm.Dataset, desc *pixel.Descriptor, m *raster.Matrix) {
	for _, group := range [][]*dcm.Dataset{
		ds.Sequence(tag.SharedFunctionalGroupsSequence),
		ds.Sequence(tag.PerFrameFunctionalGroupsSequence),
	} {
		for _, item := range group {
			item.Delete(tag.PixelValueTransformation)
		}
	}
	if m.Type.IsFloat() {
		ds.Delete(tag.RescaleSlope)
		ds.Delete(tag.RescaleIntercept)
		return
	}
	ds.Set(tag.RescaleSlope, 1.0)
	ds.Set(tag.RescaleIntercept, 0.0)

	vr := "US"
	if m.Type.Signed() {
		vr = "SS"
	}
	slope, intercept := desc.RescaleFor(0)
	if v, ok := desc.PaddingValue.Get(); ok {
		ds.SetVR(tag.PixelPaddingValue, vr, int(m.Type.Clamp(v*slope+intercept)))
	}
	if v, ok := desc.PaddingRangeLimit.Get(); ok {
		ds.SetVR(tag.PixelPaddingRangeLimit, vr, int(m.Type.Clamp(v*slope+intercept)))
	}
	ds.Delete(tag.SmallestImagePixelValue)
	ds.Delete(tag.LargestImagePixelValue)
}

var lossyMethods = map[transfer.Family]string{
	transfer.JPEGBaselineFamily:    "ISO_10918_1",
	transfer.JPEGExtendedFamily:    "ISO_10918_1",
	transfer.JPEGSpectralFamily:    "ISO_10918_1",
	transfer.JPEGProgressiveFamily: "ISO_10918_1",
	transfer.JPEGLSFamily:          "ISO_14495_1",
	transfer.JPEG2000Family:        "ISO_15444_1",
}

// markLossy records irreversible compression and gives the result a new
// instance identity.
func markLossy(ds *dcm.Dataset, ts transfer.Syntax, rawSize, written int) {
	ds.Set(tag.LossyImageCompression, "01")
	ratio := 1.0
	if written > 0 {
		ratio = float64(rawSize) / float64(written)
	}
	ds.Set(tag.LossyImageCompressionRatio, ratio)
	if method, ok := lossyMethods[ts.Family()]; ok {
		ds.Set(tag.LossyImageCompressionMethod, method)
	}
	ds.Set(tag.DerivationDescription, "Lossy compression "+ts.Name())
	if types := ds.Strings(tag.ImageType); len(types) > 0 {
		types[0] = "DERIVED"
		ds.Set(tag.ImageType, types)
	}
	uid := dcm.NewUID()
	ds.Set(tag.SOPInstanceUID, uid)
	ds.Set(tag.MediaStorageSOPInstanceUID, uid)
}
