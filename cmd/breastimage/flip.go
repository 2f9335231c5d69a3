package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"breastimage/pkg/orient"
	"breastimage/pkg/volio"
)

var (
	flipOutput  string
	flipWorkers int
)

var flipCmd = &cobra.Command{
	Use:   "flip [volume]",
	Short: "Rotate every slice of a volume by 180 degrees in-plane",
	Long: `Reflect both in-plane axes of every slice, leaving the slice axis, spacing
and geometry alone. The result is written as a raw volume header plus data file.
Interrupting the command stops between slices.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlip,
}

func init() {
	rootCmd.AddCommand(flipCmd)

	flipCmd.Flags().StringVarP(&flipOutput, "out", "o", "flipped.yaml", "Output volume header")
	flipCmd.Flags().IntVar(&flipWorkers, "workers", 0, "Slices flipped concurrently (default from config)")
}

func runFlip(cmd *cobra.Command, args []string) error {
	src, err := loadVolume(args[0])
	if err != nil {
		return fmt.Errorf("failed to load volume: %w", err)
	}

	workers := cfg.Flip.Workers
	if flipWorkers > 0 {
		workers = flipWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []orient.Option{orient.WithWorkers(workers)}
	if cfg.Flip.ReportProgress && cfg.Output.Verbose {
		opts = append(opts, orient.WithProgress(func(done, total int) {
			fmt.Printf("\rFlipping slices: %d/%d (%.0f%%)", done, total, 100*float64(done)/float64(total))
			if done == total {
				fmt.Println()
			}
		}))
	}

	img := src.volume.ImageData()
	fmt.Printf("Flipping %s: %v %v with %d worker(s)\n", src.volume.Name, img.Dims, img.Scalar, workers)
	startTime := time.Now()
	if err := orient.FlipVolume(ctx, src.volume, opts...); err != nil {
		return fmt.Errorf("flip failed: %w", err)
	}
	fmt.Printf("Flip completed in %.2f seconds\n", time.Since(startTime).Seconds())

	if err := volio.Save(flipOutput, src.volume); err != nil {
		return err
	}
	fmt.Printf("Flipped volume saved to: %s\n", flipOutput)
	return nil
}
