package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/mask"
	"github.com/jpfielding/dcmimage/pkg/render"
	"github.com/jpfielding/dcmimage/pkg/transcode"
	"github.com/spf13/cobra"
)

// NewTranscodeCmd creates the transcode cobra command
func NewTranscodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Rewrite pixel data under another transfer syntax",
		Long:  "Decodes every frame, optionally bakes the modality rescale and blanks configured regions, then encodes under the requested transfer syntax or the closest one the samples allow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			out, _ := f.GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			syntaxStr, _ := f.GetString("syntax")
			syntax, err := parseSyntax(syntaxStr)
			if err != nil {
				return err
			}

			var opts []transcode.Option
			if f.Changed("quality") {
				q, _ := f.GetInt("quality")
				opts = append(opts, transcode.WithQuality(q))
			}
			if f.Changed("near") {
				n, _ := f.GetInt("near")
				opts = append(opts, transcode.WithNearLossless(n))
			}
			if f.Changed("ratio") {
				r, _ := f.GetFloat64("ratio")
				opts = append(opts, transcode.WithRatio(r))
			}
			if f.Changed("predictor") || f.Changed("point-transform") {
				p, _ := f.GetInt("predictor")
				pt, _ := f.GetInt("point-transform")
				opts = append(opts, transcode.WithPrediction(p, pt))
			}
			if path, _ := f.GetString("mask"); path != "" {
				spec, err := mask.Load(path)
				if err != nil {
					return err
				}
				opts = append(opts, transcode.WithMask(spec))
			}
			rescale, _ := f.GetBool("rescale")
			alwaysFloat, _ := f.GetBool("always-float")
			policy := render.NewFloatPolicy()
			policy.SetAlwaysFloat(alwaysFloat)
			workers, _ := f.GetInt("workers")
			opts = append(opts,
				transcode.WithRescale(rescale),
				transcode.WithFloatPolicy(policy),
				transcode.WithWorkers(workers),
			)

			ds, err := readDataset(inputPath(cmd, args))
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			result, err := transcode.New(syntax, opts...).Transcode(ctx, ds)
			if err != nil {
				return err
			}
			n, err := dcm.WriteFile(out, result)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s)\n", out, n, dcm.GetTransferSyntax(result))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to transcode (- for stdin)")
	pf.StringP("out", "o", "", "Output DICOM file")
	pf.StringP("syntax", "s", "explicit", "Target transfer syntax UID or alias (explicit, jpeg, jpeg-lossless, jpeg-ls, jpeg-ls-near, j2k, j2k-lossless, rle)")
	pf.Int("quality", 85, "Lossy JPEG quality")
	pf.Int("near", 2, "JPEG-LS near-lossless error")
	pf.Float64("ratio", 10, "JPEG 2000 compression ratio")
	pf.Int("predictor", 1, "Lossless JPEG predictor (1..7)")
	pf.Int("point-transform", 0, "Lossless JPEG point transform")
	pf.String("mask", "", "YAML file of regions to blank per station")
	pf.Bool("rescale", false, "Bake the modality rescale into the samples")
	pf.Bool("always-float", false, "With --rescale, always write float pixel data")
	pf.Int("workers", 0, "Frames decoded or encoded at once (0 = GOMAXPROCS)")
	return cmd
}
