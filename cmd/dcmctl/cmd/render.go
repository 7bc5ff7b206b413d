package cmd

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jpfielding/dcmimage/pkg/codec"
	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/opt"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/jpfielding/dcmimage/pkg/presentation"
	"github.com/jpfielding/dcmimage/pkg/render"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRenderCmd creates the render cobra command
func NewRenderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames to PNG or JPEG",
		Long:  "Applies overlay removal, modality rescale, VOI windowing and overlays to frames of a DICOM file and writes display images.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(inputPath(cmd, args))
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			setting, err := windowFlags(cmd)
			if err != nil {
				return err
			}
			opts, overlayMask, err := pipelineFlags(cmd)
			if err != nil {
				return err
			}
			frame, _ := cmd.Flags().GetInt("frame")
			out, _ := cmd.Flags().GetString("out")
			pstate, _ := cmd.Flags().GetString("pstate")
			workers, _ := cmd.Flags().GetInt("workers")
			state, err := loadState(ctx, pstate)
			if err != nil {
				return err
			}
			return runRender(ctx, ds, renderJob{
				setting:     setting,
				opts:        opts,
				overlayMask: overlayMask,
				frame:       frame,
				out:         out,
				state:       state,
				workers:     workers,
			})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to render (- for stdin)")
	pf.StringP("out", "o", "frame.png", "Output image; .jpg/.jpeg writes JPEG, anything else PNG")
	pf.Int("frame", 0, "Frame index to render, -1 for every frame")
	pf.Float64("center", 0, "Window center")
	pf.Float64("width", 0, "Window width")
	pf.String("shape", "", "VOI LUT shape (LINEAR, SIGMOID, LOG, LOG_INV)")
	pf.Int("voi-lut-index", 0, "Window or VOI LUT preset to use")
	pf.Bool("inverse", false, "Invert the grayscale output")
	pf.Bool("padding", true, "Render pixel padding black")
	pf.Bool("fill", false, "Clamp values outside the sigmoid range")
	pf.Bool("always-float", false, "Rescale to floating point regardless of slope")
	pf.String("overlay-mask", "0xFFFF", "Overlay slots to draw, bit n enables group 60nn")
	pf.String("overlay-color", "#FFFFFF", "Overlay color as #RRGGBB")
	pf.Bool("embedded-overlays", true, "Draw overlays stored in unused pixel bits")
	pf.String("pstate", "", "Presentation state file to apply")
	pf.Int("workers", 0, "Frames rendered at once when --frame=-1 (0 = GOMAXPROCS)")
	return cmd
}

type renderJob struct {
	setting     render.WindowLevelSetting
	opts        []render.Option
	overlayMask uint16
	frame       int
	out         string
	state       *presentation.State
	workers     int
}

// windowFlags converts the explicitly set flags into a WindowLevelSetting
func windowFlags(cmd *cobra.Command) (render.WindowLevelSetting, error) {
	var ws render.WindowLevelSetting
	f := cmd.Flags()
	if f.Changed("center") != f.Changed("width") {
		return ws, fmt.Errorf("%w: --center and --width go together", render.ErrInvalidWindow)
	}
	if f.Changed("center") {
		c, _ := f.GetFloat64("center")
		w, _ := f.GetFloat64("width")
		ws.Center, ws.Width = opt.Some(c), opt.Some(w)
	}
	if f.Changed("shape") {
		s, _ := f.GetString("shape")
		shape, err := render.ParseLutShape(s)
		if err != nil {
			return ws, err
		}
		ws.LutShape = opt.Some(shape)
	}
	if f.Changed("voi-lut-index") {
		i, _ := f.GetInt("voi-lut-index")
		ws.VoiLutIndex = opt.Some(i)
	}
	if f.Changed("inverse") {
		v, _ := f.GetBool("inverse")
		ws.InverseLut = opt.Some(v)
	}
	if f.Changed("padding") {
		v, _ := f.GetBool("padding")
		ws.ApplyPixelPadding = opt.Some(v)
	}
	if f.Changed("fill") {
		v, _ := f.GetBool("fill")
		ws.FillOutsideLutRange = opt.Some(v)
	}
	return ws, nil
}

func pipelineFlags(cmd *cobra.Command) ([]render.Option, uint16, error) {
	f := cmd.Flags()
	maskStr, _ := f.GetString("overlay-mask")
	mask, err := strconv.ParseUint(maskStr, 0, 16)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid --overlay-mask %q: %w", maskStr, err)
	}
	colorStr, _ := f.GetString("overlay-color")
	c, err := parseColor(colorStr)
	if err != nil {
		return nil, 0, err
	}
	embedded, _ := f.GetBool("embedded-overlays")
	policy := render.NewFloatPolicy()
	alwaysFloat, _ := f.GetBool("always-float")
	policy.SetAlwaysFloat(alwaysFloat)
	return []render.Option{
		render.WithActivationMask(uint16(mask)),
		render.WithOverlayColor(c),
		render.WithEmbeddedOverlays(embedded),
		render.WithFloatPolicy(policy),
	}, uint16(mask), nil
}

func parseColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return nil, fmt.Errorf("invalid color %q, want #RRGGBB", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

func runRender(ctx context.Context, ds *dcm.Dataset, job renderJob) error {
	desc, err := pixel.NewDescriptor(ds)
	if err != nil {
		return err
	}

	frames := []int{job.frame}
	if job.frame < 0 {
		frames = make([]int, desc.NumFrames())
		for i := range frames {
			frames[i] = i
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if job.workers > 0 {
		g.SetLimit(job.workers)
	}
	for _, i := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			setting, opts := job.setting, job.opts
			if job.state != nil && job.state.AppliesTo(ds, i) {
				setting = mergeSetting(job.state.WindowSetting(ds, i), setting)
				opts = append(append([]render.Option{}, opts...), job.state.OverlayOptions(job.overlayMask)...)
			}
			raw, err := codec.LoadFrame(ds, desc, i)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			img, err := render.NewPipeline(opts...).Render(raw, desc, setting, i)
			if err != nil {
				return err
			}
			path := job.out
			if len(frames) > 1 {
				ext := filepath.Ext(path)
				path = fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), i, ext)
			}
			return writeImage(path, img)
		})
	}
	return g.Wait()
}

// loadState reads the presentation state at path; an empty path yields nil
func loadState(ctx context.Context, path string) (*presentation.State, error) {
	if path == "" {
		return nil, nil
	}
	psds, err := dcm.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presentation state: %w", err)
	}
	state, err := presentation.New(psds)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "presentation state",
		slog.String("type", state.Type().Name),
		slog.String("label", state.Label()))
	return state, nil
}

// mergeSetting overlays the fields set on cli onto base
func mergeSetting(base, cli render.WindowLevelSetting) render.WindowLevelSetting {
	if cli.Center.IsSet() {
		base.Center, base.Width = cli.Center, cli.Width
	}
	if cli.LutShape.IsSet() {
		base.LutShape = cli.LutShape
	}
	if cli.VoiLutIndex.IsSet() {
		base.VoiLutIndex = cli.VoiLutIndex
	}
	if cli.InverseLut.IsSet() {
		base.InverseLut = cli.InverseLut
	}
	if cli.ApplyPixelPadding.IsSet() {
		base.ApplyPixelPadding = cli.ApplyPixelPadding
	}
	if cli.FillOutsideLutRange.IsSet() {
		base.FillOutsideLutRange = cli.FillOutsideLutRange
	}
	return base
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("wrote image", slog.String("path", path), slog.Int("width", img.Bounds().Dx()), slog.Int("height", img.Bounds().Dy()))
	return f.Close()
}
