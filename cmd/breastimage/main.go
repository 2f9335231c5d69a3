package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"breastimage/internal/models"
	"breastimage/pkg/config"
	"breastimage/pkg/dicomio"
	"breastimage/pkg/volio"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "breastimage",
	Short: "Breast image ROI localisation and reorientation",
	Long: `breastimage maps regions of interest drawn in RAS world space onto the voxel
grid of mammography and tomosynthesis volumes, and corrects the in-plane
orientation of acquired image stacks.

Volumes are read from a raw volume header (.yaml), a DICOM file or a
directory holding a DICOM series.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("verbose") {
			loaded.Output.Verbose = verbose
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "breastimage.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", true, "Print warnings and progress")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logger returns the warning logger for the current verbosity
func logger() *log.Logger {
	if cfg == nil || !cfg.Output.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

// loadedVolume is a volume plus any attributes read from its source
type loadedVolume struct {
	volume     *models.Volume
	attributes map[string]string
}

// loadVolume picks a reader from the path: a .yaml/.yml header, a DICOM
// series directory or a single DICOM file
func loadVolume(path string) (*loadedVolume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		series, err := dicomio.LoadSeries(path)
		if err != nil {
			return nil, err
		}
		return &loadedVolume{volume: series.Volume, attributes: series.Attributes}, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		vol, err := volio.Load(path)
		if err != nil {
			return nil, err
		}
		return &loadedVolume{volume: vol}, nil
	default:
		series, err := dicomio.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return &loadedVolume{volume: series.Volume, attributes: series.Attributes}, nil
	}
}
