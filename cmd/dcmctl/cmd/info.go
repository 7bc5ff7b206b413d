package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/dcmimage/pkg/codec"
	"github.com/jpfielding/dcmimage/pkg/dcm"
	"github.com/jpfielding/dcmimage/pkg/dcm/tag"
	"github.com/jpfielding/dcmimage/pkg/dcm/transfer"
	"github.com/jpfielding/dcmimage/pkg/overlay"
	"github.com/jpfielding/dcmimage/pkg/pixel"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info cobra command
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the pixel data of a DICOM file",
		Long:  "Parses a DICOM file and prints its image pixel description, windows, overlays and the syntax a transcode would resolve to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dumpFrame, _ := cmd.Flags().GetInt("dump-frame")
			out, _ := cmd.Flags().GetString("out")
			target, _ := cmd.Flags().GetString("syntax")

			ds, err := readDataset(inputPath(cmd, args))
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			if dumpFrame >= 0 {
				return dumpRawFrame(cmd.OutOrStdout(), ds, dumpFrame, out)
			}
			return runInfo(cmd.OutOrStdout(), ds, target)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to describe (- for stdin)")
	pf.Int("dump-frame", -1, "Index of frame whose stored bytes are dumped to disk")
	pf.String("out", "", "Output path for dumped frame")
	pf.String("syntax", "", "Show what this transfer syntax (UID or alias) resolves to")
	return cmd
}

func runInfo(w io.Writer, ds *dcm.Dataset, target string) error {
	fmt.Fprintf(w, "Total elements: %d\n\n", len(ds.Elements))

	fmt.Fprintln(w, "=== Key Metadata ===")
	fmt.Fprintf(w, "SOPClassUID: %s\n", dcm.GetSOPClassUID(ds))
	fmt.Fprintf(w, "SOPInstanceUID: %s\n", ds.String(tag.SOPInstanceUID))
	fmt.Fprintf(w, "Modality: %s\n", ds.String(tag.Modality))
	fmt.Fprintf(w, "StationName: %s\n", ds.String(tag.StationName))
	ts := transfer.FromUID(dcm.GetTransferSyntax(ds))
	fmt.Fprintf(w, "TransferSyntax: %s (%s, %s)\n", ts, ts.Name(), ts.Family())
	if c, err := codec.Lookup(ts); err == nil {
		fmt.Fprintf(w, "Codec: %s\n", c.Name())
	}
	fmt.Fprintln(w)

	desc, err := pixel.NewDescriptor(ds)
	if err != nil {
		fmt.Fprintf(w, "No image pixel description: %v\n", err)
		return nil
	}
	fmt.Fprintln(w, "=== Pixel Description ===")
	fmt.Fprintf(w, "Rows: %d\n", desc.Rows)
	fmt.Fprintf(w, "Columns: %d\n", desc.Columns)
	fmt.Fprintf(w, "NumberOfFrames: %d\n", desc.NumFrames())
	fmt.Fprintf(w, "SamplesPerPixel: %d\n", desc.SamplesPerPixel)
	fmt.Fprintf(w, "Photometric: %s\n", desc.Photometric)
	fmt.Fprintf(w, "BitsAllocated/Stored/High: %d/%d/%d\n", desc.BitsAllocated, desc.BitsStored, desc.HighBit)
	fmt.Fprintf(w, "Signed: %v Float: %v\n", desc.Signed, desc.Float)
	fmt.Fprintf(w, "MatrixType: %s\n", desc.MatrixType())
	slope, intercept := desc.RescaleFor(0)
	fmt.Fprintf(w, "Rescale: slope=%s intercept=%s (per-frame: %d)\n", dcm.FormatDS(slope), dcm.FormatDS(intercept), len(desc.FrameRescale))
	if pad, ok := desc.PaddingValue.Get(); ok {
		fmt.Fprintf(w, "PixelPadding: %v..%v\n", pad, desc.PaddingRangeLimit.Or(pad))
	}
	for i, win := range desc.WindowsFor(0) {
		fmt.Fprintf(w, "Window[%d]: center=%v width=%v %s %s\n", i, win.Center, win.Width, win.Function, win.Explanation)
	}
	for i, lut := range desc.VOILUTs {
		fmt.Fprintf(w, "VOILUT[%d]: first=%d entries=%d bits=%d %s\n", i, lut.FirstMapped, len(lut.Data), lut.Bits, lut.Explanation)
	}
	if desc.Palette != nil {
		fmt.Fprintf(w, "Palette: %d entries\n", len(desc.Palette.Red.Data))
	}

	planes := overlay.Extract(ds, overlay.AllSlots)
	if len(planes) > 0 || len(desc.EmbeddedOverlayBits) > 0 {
		fmt.Fprintln(w, "\n=== Overlays ===")
	}
	for _, p := range planes {
		fmt.Fprintf(w, "Overlay %04X: %dx%d origin=%v frames=%d+%d type=%s %s\n",
			p.Group, p.Columns, p.Rows, p.Origin, p.ImageFrameOrigin, p.FramesInOverlay, p.Type, p.Label)
	}
	for _, b := range desc.EmbeddedOverlayBits {
		fmt.Fprintf(w, "Embedded overlay %04X: bit %d\n", b.Group, b.BitPosition)
	}

	if target != "" {
		requested, err := parseSyntax(target)
		if err != nil {
			return err
		}
		resolved, err := transfer.Resolve(desc.BitsStored, desc.MatrixType(), requested)
		if err != nil {
			fmt.Fprintf(w, "\nResolve %s: %v\n", requested.Name(), err)
			return nil
		}
		fmt.Fprintf(w, "\nResolve %s -> %s\n", requested.Name(), resolved.Name())
	}
	return nil
}

// dumpRawFrame writes the stored bytes of one frame, compressed or native
func dumpRawFrame(w io.Writer, ds *dcm.Dataset, index int, outPath string) error {
	pd, ok := ds.PixelData()
	if !ok {
		return fmt.Errorf("no pixel data")
	}
	var data []byte
	switch {
	case pd.IsEncapsulated:
		if index >= len(pd.Frames) {
			return fmt.Errorf("frame index %d out of bounds (0-%d)", index, len(pd.Frames)-1)
		}
		data = pd.Frames[index].CompressedData
	default:
		desc, err := pixel.NewDescriptor(ds)
		if err != nil {
			return err
		}
		if index >= desc.NumFrames() {
			return fmt.Errorf("frame index %d out of bounds (0-%d)", index, desc.NumFrames()-1)
		}
		var all []byte
		for _, f := range pd.Frames {
			all = append(all, f.Data...)
		}
		size := desc.FrameSize()
		if (index+1)*size > len(all) {
			return fmt.Errorf("frame %d truncated", index)
		}
		data = all[index*size : (index+1)*size]
	}

	if outPath == "" {
		outPath = fmt.Sprintf("frame_%d.bin", index)
	}
	fmt.Fprintf(w, "Dumping frame %d (%d bytes) to %s\n", index, len(data), outPath)
	return os.WriteFile(outPath, data, 0644)
}

var syntaxAliases = map[string]transfer.Syntax{
	"implicit":      transfer.ImplicitVRLittleEndian,
	"explicit":      transfer.ExplicitVRLittleEndian,
	"jpeg":          transfer.JPEGBaseline,
	"jpeg-extended": transfer.JPEGExtended,
	"jpeg-lossless": transfer.JPEGLosslessSV1,
	"jpeg-ls":       transfer.JPEGLSLossless,
	"jpeg-ls-near":  transfer.JPEGLSNearLossless,
	"j2k-lossless":  transfer.JPEG2000Lossless,
	"j2k":           transfer.JPEG2000,
	"rle":           transfer.RLELossless,
}

// parseSyntax accepts a transfer syntax UID or one of syntaxAliases
func parseSyntax(s string) (transfer.Syntax, error) {
	if ts, ok := syntaxAliases[s]; ok {
		return ts, nil
	}
	if _, ok := transfer.Lookup(transfer.Syntax(s)); ok {
		return transfer.Syntax(s), nil
	}
	return "", fmt.Errorf("%w: %q", transfer.ErrUnsupportedSyntax, s)
}
