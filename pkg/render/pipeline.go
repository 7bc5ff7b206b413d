// Package render turns stored pixel samples into display images: embedded
// overlay removal, modality rescale, VOI windowing and overlay compositing,
// applied once each and in that order.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/jpfielding/dcmimage/pkg/overlay"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/raster"
)

// Pipeline holds the rendering options. A Pipeline is safe for concurrent
// use as long as its FloatPolicy is.
type Pipeline struct {
	policy         *FloatPolicy
	estimator      WindowEstimator
	overlayColor   color.Color
	activationMask uint16
	extra          []pixel.OverlayPlane
	colored        []coloredPlanes
	embedded       bool
}

type coloredPlanes struct {
	color  color.Color
	planes []pixel.OverlayPlane
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithFloatPolicy shares a float promotion policy with the rescale stage
func WithFloatPolicy(p *FloatPolicy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

// WithEstimator replaces the default MinMaxEstimator
func WithEstimator(e WindowEstimator) Option {
	return func(pl *Pipeline) { pl.estimator = e }
}

// WithOverlayColor sets the overlay paint color (default white)
func WithOverlayColor(c color.Color) Option {
	return func(pl *Pipeline) { pl.overlayColor = c }
}

// WithActivationMask selects overlay slots by bit (default all)
func WithActivationMask(mask uint16) Option {
	return func(pl *Pipeline) { pl.activationMask = mask }
}

// WithOverlays adds planes from outside the image, e.g. a presentation state
func WithOverlays(planes ...pixel.OverlayPlane) Option {
	return func(pl *Pipeline) { pl.extra = append(pl.extra, planes...) }
}

// WithColoredOverlays adds outside planes painted in c instead of the
// pipeline's overlay color
func WithColoredOverlays(c color.Color, planes ...pixel.OverlayPlane) Option {
	return func(pl *Pipeline) {
		pl.colored = append(pl.colored, coloredPlanes{color: c, planes: planes})
	}
}

// WithEmbeddedOverlays toggles painting overlays recovered from pixel bits
func WithEmbeddedOverlays(on bool) Option {
	return func(pl *Pipeline) { pl.embedded = on }
}

// NewPipeline returns a pipeline with defaults: a private FloatPolicy,
// MinMaxEstimator, white overlays on all slots including embedded ones.
func NewPipeline(opts ...Option) *Pipeline {
	pl := &Pipeline{
		policy:         NewFloatPolicy(),
		estimator:      MinMaxEstimator{},
		overlayColor:   overlay.DefaultColor,
		activationMask: overlay.AllSlots,
		embedded:       true,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Policy returns the float promotion policy used by Rescale
func (pl *Pipeline) Policy() *FloatPolicy {
	return pl.policy
}

// Render produces the display image of one frame. raw is the frame as
// loaded from storage, embedded overlay bits included.
func (pl *Pipeline) Render(raw *raster.Matrix, desc *pixel.Descriptor, setting WindowLevelSetting, frameIndex int) (image.Image, error) {
	if raw == nil || desc == nil {
		return nil, fmt.Errorf("%w: nothing to render", raster.ErrInvalidParameter)
	}
	m, stripped := StripEmbeddedOverlays(raw, desc, frameIndex)
	m, rescaled := Rescale(m, desc, frameIndex, pl.policy)
	display, err := ApplyVOI(m, desc, setting, frameIndex, pl.estimator)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameIndex, err)
	}
	img, err := display.Image()
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameIndex, err)
	}

	var planes []pixel.OverlayPlane
	for _, p := range overlay.Filter(desc.OverlayPlanes, pl.activationMask) {
		if p.HasData() {
			planes = append(planes, p)
		}
	}
	planes = append(planes, pl.extra...)
	img, painted := overlay.Composite(img, planes, frameIndex, pl.overlayColor)
	for _, cp := range pl.colored {
		var st raster.Status
		if img, st = overlay.Composite(img, cp.planes, frameIndex, cp.color); st == raster.Replaced {
			painted = raster.Replaced
		}
	}

	embedded := raster.Unchanged
	if pl.embedded && len(desc.EmbeddedOverlayBits) > 0 {
		eplanes := overlay.Filter(overlay.EmbeddedPlanes(raw, desc, frameIndex), pl.activationMask)
		img, embedded = overlay.CompositeEmbedded(raw, img, eplanes, desc, frameIndex, pl.overlayColor)
	}

	slog.Debug("rendered frame",
		slog.String("sop_instance_uid", desc.SOPInstanceUID),
		slog.Int("frame", frameIndex),
		slog.String("strip", stripped.String()),
		slog.String("rescale", rescaled.String()),
		slog.String("overlays", painted.String()),
		slog.String("embedded_overlays", embedded.String()))
	return img, nil
}
