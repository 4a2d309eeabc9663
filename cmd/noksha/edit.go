package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/app"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/cli"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/overlay"
	"github.com/fpang/noksha/internal/studio"
)

// recolor / mask flags
var (
	imageFlag       string
	strokesFlag     string
	colorFlag       string
	editOutFlag     string
	maskOutFlag     string
	strokeWidthFlag float64
)

var recolorCmd = &cobra.Command{
	Use:   "recolor",
	Short: "Recolor the stroked region of a design",
	Long: `Recolor replays strokes over a design image, rasterizes them into a mask
and asks the model to recolor the masked region.

The strokes file is JSON: a list of paths, each a list of {"x","y"} points
in image pixels.`,
	RunE: runRecolor,
}

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Write the mask that recolor would send",
	RunE:  runMask,
}

func init() {
	for _, c := range []*cobra.Command{recolorCmd, maskCmd} {
		f := c.Flags()
		f.StringVar(&imageFlag, "image", "", "Design image")
		f.StringVar(&strokesFlag, "strokes", "", "JSON file with stroke paths")
		f.Float64Var(&strokeWidthFlag, "stroke-width", 0, "Brush diameter in pixels (default from config)")
		c.MarkFlagRequired("image")
		c.MarkFlagRequired("strokes")
	}
	recolorCmd.Flags().StringVarP(&colorFlag, "color", "c", "", "Palette color label (e.g. Emerald)")
	recolorCmd.MarkFlagRequired("color")
	recolorCmd.Flags().StringVarP(&editOutFlag, "out", "o", "", "Output file (default <image>-<color>.png)")
	maskCmd.Flags().StringVarP(&maskOutFlag, "out", "o", "mask.png", "Output file")
}

// openStudio loads the image and replays the strokes in edit mode.
func openStudio(r chat.Recolorer, width float64) (*studio.Studio, error) {
	img, err := imageutil.Load(imageFlag)
	if err != nil {
		return nil, err
	}
	w, h, err := imageutil.Dimensions(img)
	if err != nil {
		return nil, err
	}
	paths, err := readStrokes(strokesFlag)
	if err != nil {
		return nil, err
	}

	if strokeWidthFlag > 0 {
		width = strokeWidthFlag
	}
	st := studio.New(design.Design{Image: img}, r, studio.WithSurfaceOptions(overlay.WithStrokeWidth(width)))
	if err := st.EnterEdit(w, h); err != nil {
		st.Close()
		return nil, err
	}
	if err := st.ReplayStrokes(paths); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func readStrokes(path string) ([]overlay.Path, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strokes: %w", err)
	}
	var paths []overlay.Path
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("failed to parse strokes %s: %w", path, err)
	}
	return paths, nil
}

func runMask(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st, err := openStudio(nil, cfg.Overlay.StrokeWidth)
	if err != nil {
		return err
	}
	defer st.Close()

	m, err := st.MaskPreview()
	if err != nil {
		return err
	}
	data, err := m.PNG()
	if err != nil {
		return err
	}
	if err := os.WriteFile(maskOutFlag, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mask: %w", err)
	}
	fmt.Printf("mask: %s (%d pixels selected)\n", maskOutFlag, m.Selected())
	return nil
}

func runRecolor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	client := cli.InitGeminiClient(ctx, cfg.Provider.TextModel)

	st, err := openStudio(app.NewProvider(cfg, client.Models), cfg.Overlay.StrokeWidth)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := st.SelectColor(colorFlag)
	if err != nil {
		return err
	}
	start := time.Now()
	d, err := st.Apply(ctx)
	if err != nil {
		return err
	}

	out := editOutFlag
	if out == "" {
		base := strings.TrimSuffix(imageFlag, fileExt(imageFlag))
		out = fmt.Sprintf("%s-%s%s", base, strings.ToLower(strings.ReplaceAll(c.Label, " ", "-")), imageutil.Extension(d.Image.MIMEType))
	}
	if err := os.WriteFile(out, d.Image.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	fmt.Printf("recolored to %s in %s: %s\n", c.Name, cli.FormatElapsed(time.Since(start)), out)
	return nil
}

func fileExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[i:]
	}
	return ""
}
