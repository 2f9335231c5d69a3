package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var infoCmd = &cobra.Command{
	Use:   "info [volume]",
	Short: "Print volume geometry and attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := loadVolume(args[0])
		if err != nil {
			return fmt.Errorf("failed to load volume: %w", err)
		}
		vol := src.volume
		img := vol.ImageData()

		fmt.Printf("Name: %s\n", vol.Name)
		fmt.Printf("Dimensions: %d x %d x %d\n", img.Dims[0], img.Dims[1], img.Dims[2])
		fmt.Printf("Scalar type: %s (%d bytes)\n", img.Scalar, img.Scalar.Size())
		fmt.Printf("Spacing: %.4f x %.4f x %.4f mm\n", img.Spacing.X, img.Spacing.Y, img.Spacing.Z)
		fmt.Printf("\nIJK to RAS:\n%v\n", mat.Formatted(vol.IJKToRASMatrix(), mat.Prefix("  "), mat.Squeeze()))
		fmt.Printf("\nRAS to IJK:\n%v\n", mat.Formatted(vol.RASToIJKMatrix(), mat.Prefix("  "), mat.Squeeze()))

		if len(src.attributes) > 0 {
			keys := make([]string, 0, len(src.attributes))
			for k := range src.attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println("\nAttributes:")
			for _, k := range keys {
				fmt.Printf("  %s: %s\n", k, src.attributes[k])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
