package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"breastimage/internal/models"
	"breastimage/pkg/roi"
	"breastimage/pkg/visualization"
)

var (
	sliceAxis   string
	slicePos    int
	sliceOutput string
	sliceAll    bool
	sliceCenter    []float64
	sliceRadius []float64
)

var sliceCmd = &cobra.Command{
	Use:   "slice [volume]",
	Short: "Export volume slices as images",
	Long: `Export one slice, or every slice along an axis, as 16-bit grayscale images.
With --center and --radius the located ROI box is outlined on z slices.`,
	Args: cobra.ExactArgs(1),
	RunE: runSlice,
}

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().StringVar(&sliceAxis, "axis", "z", "Slice axis: x, y or z")
	sliceCmd.Flags().IntVar(&slicePos, "pos", 0, "Slice index along the axis")
	sliceCmd.Flags().StringVarP(&sliceOutput, "out", "o", "", "Output image, or directory with --all")
	sliceCmd.Flags().BoolVar(&sliceAll, "all", false, "Export every slice along the axis")
	sliceCmd.Flags().Float64SliceVar(&sliceCenter, "center", nil, "ROI centre in RAS mm to outline")
	sliceCmd.Flags().Float64SliceVar(&sliceRadius, "radius", nil, "ROI radius in RAS mm to outline")
}

func runSlice(cmd *cobra.Command, args []string) error {
	src, err := loadVolume(args[0])
	if err != nil {
		return fmt.Errorf("failed to load volume: %w", err)
	}

	viewer, err := visualization.NewViewer(src.volume.ImageData())
	if err != nil {
		return err
	}
	format := strings.ToLower(cfg.Output.SliceFormat)

	if sliceAll {
		dir := sliceOutput
		if dir == "" {
			dir = "slices"
		}
		if err := viewer.SaveSliceSequence(sliceAxis, dir, format); err != nil {
			return err
		}
		fmt.Printf("Slices saved to: %s\n", dir)
		return nil
	}

	img, err := viewer.ExtractSlice(sliceAxis, slicePos)
	if err != nil {
		return err
	}

	if sliceCenter != nil || sliceRadius != nil {
		center, err := vecFlag("center", sliceCenter)
		if err != nil {
			return err
		}
		radius, err := vecFlag("radius", sliceRadius)
		if err != nil {
			return err
		}
		box, err := roi.NewLocator(cfg.DegeneratePolicy(), logger()).
			Locate(src.volume, &models.ROI{Center: center, Radius: radius})
		if err != nil {
			return fmt.Errorf("failed to locate ROI: %w", err)
		}
		if strings.EqualFold(sliceAxis, "z") {
			viewer.OverlayBox(img, box, slicePos)
		} else {
			logger().Printf("Warning: ROI outline is only drawn on z slices")
		}
	}

	out := sliceOutput
	if out == "" {
		out = fmt.Sprintf("slice_%s_%03d.%s", sliceAxis, slicePos, format)
	} else if filepath.Ext(out) == "" {
		out += "." + format
	}
	if err := viewer.SaveSlice(img, out); err != nil {
		return err
	}
	fmt.Printf("Slice saved to: %s\n", out)
	return nil
}
