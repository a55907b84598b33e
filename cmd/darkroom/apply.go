package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	darkroom "github.com/darkroom-go/darkroom"
	"github.com/darkroom-go/darkroom/config"
	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/utils"
)

var (
	applyOut        string
	applyBrightness float64
	applyContrast   float64
	applyClarity    float64
	applySharpen    float64
	applySaturation float64
	applyVibrance   float64
	applyHue        float64
	applyTemp       float64
	applyRotate     float64
	applyFlipH      bool
	applyFlipV      bool
	applyFilter     string
	applyVignette   float64
	applyNoise      float64
	applyBlur       float64
	applyWidth      int
	applyHeight     int
)

var applyCmd = &cobra.Command{
	Use:   "apply <input_image>",
	Short: "Apply adjustments to an image and write the result",
	Long: `Reads a PNG, JPEG or WebP image, runs it through the geometry, tone,
colour and effects stages at full resolution, and writes the result next to
the input (or to --out) under a content-addressed name.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "output path (default: content-addressed name beside input)")
	applyCmd.Flags().Float64Var(&applyBrightness, "brightness", 100, "brightness 0-200, 100 neutral")
	applyCmd.Flags().Float64Var(&applyContrast, "contrast", 100, "contrast 0-200, 100 neutral")
	applyCmd.Flags().Float64Var(&applyClarity, "clarity", 0, "clarity -100..100")
	applyCmd.Flags().Float64Var(&applySharpen, "sharpen", 0, "sharpen 0-100")
	applyCmd.Flags().Float64Var(&applySaturation, "saturation", 100, "saturation 0-200, 100 neutral")
	applyCmd.Flags().Float64Var(&applyVibrance, "vibrance", 0, "vibrance -100..100")
	applyCmd.Flags().Float64Var(&applyHue, "hue", 0, "hue rotation 0-360")
	applyCmd.Flags().Float64Var(&applyTemp, "temperature", 0, "temperature -100..100")
	applyCmd.Flags().Float64Var(&applyRotate, "rotate", 0, "clockwise rotation in degrees")
	applyCmd.Flags().BoolVar(&applyFlipH, "flip-h", false, "flip horizontally")
	applyCmd.Flags().BoolVar(&applyFlipV, "flip-v", false, "flip vertically")
	applyCmd.Flags().StringVar(&applyFilter, "filter", "none", "filter preset name")
	applyCmd.Flags().Float64Var(&applyVignette, "vignette", 0, "vignette 0-100")
	applyCmd.Flags().Float64Var(&applyNoise, "noise", 0, "noise 0-100")
	applyCmd.Flags().Float64Var(&applyBlur, "blur", 0, "blur 0-100")
	applyCmd.Flags().IntVar(&applyWidth, "width", 0, "output width in pixels (0 = derive from --height)")
	applyCmd.Flags().IntVar(&applyHeight, "height", 0, "output height in pixels (0 = derive from --width)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	input := args[0]
	start := time.Now()

	preset, err := core.ParseFilterPreset(applyFilter)
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	cfg := config.Default()
	cfg.PreviewQuality = config.PreviewFull
	cfg.UseWorker = false // one-shot CLI run; no interactive preview to keep responsive
	ed, err := darkroom.New(cfg)
	if err != nil {
		return err
	}
	defer ed.Close()

	ctx := context.Background()
	if err := ed.Load(ctx, darkroom.FromReader(f)); err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	patch := core.Patch{
		RotationDegrees: &applyRotate,
		FlipHorizontal:  &applyFlipH,
		FlipVertical:    &applyFlipV,
		Brightness:      &applyBrightness,
		Contrast:        &applyContrast,
		Clarity:         &applyClarity,
		Sharpen:         &applySharpen,
		Saturation:      &applySaturation,
		Vibrance:        &applyVibrance,
		Hue:             &applyHue,
		Temperature:     &applyTemp,
		Filter:          &preset,
		Vignette:        &applyVignette,
		Noise:           &applyNoise,
		Blur:            &applyBlur,
	}
	if _, err := ed.Adjust(ctx, patch); err != nil {
		return fmt.Errorf("adjust: %w", err)
	}

	out, err := ed.Export(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if applyWidth > 0 || applyHeight > 0 {
		if out, err = resizeOutput(out, applyWidth, applyHeight); err != nil {
			return err
		}
	}

	dest := applyOut
	if dest == "" {
		// Content-addressed name: <base>.<hash>.png
		base := filepath.Base(input)
		base = base[:len(base)-len(filepath.Ext(base))]
		dest = filepath.Join(filepath.Dir(input),
			fmt.Sprintf("%s.%016x.%s", base, utils.ContentHash(out.Data), out.Format))
	}
	if err := os.WriteFile(dest, out.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logVerbose("wrote %s (%dx%d, %d bytes) in %s", dest, out.Width, out.Height, len(out.Data), time.Since(start).Round(time.Millisecond))
	fmt.Println(dest)
	return nil
}

// resizeOutput scales the exported image to the requested dimensions, with a
// zero axis derived from the source aspect ratio.
func resizeOutput(img core.EncodedImage, targetW, targetH int) (core.EncodedImage, error) {
	w, h := utils.ScaleDimensions(img.Width, img.Height, targetW, targetH)
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return core.EncodedImage{}, fmt.Errorf("decode for resize: %w", err)
	}
	format, err := imaging.FormatFromExtension(string(img.Format))
	if err != nil {
		return core.EncodedImage{}, fmt.Errorf("resize does not support %s output: %w", img.Format, err)
	}
	resized := imaging.Resize(decoded, w, h, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return core.EncodedImage{}, fmt.Errorf("encode resized output: %w", err)
	}
	return core.EncodedImage{Data: buf.Bytes(), Format: img.Format, Width: w, Height: h}, nil
}
