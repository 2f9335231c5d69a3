package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"breastimage/internal/models"
	"breastimage/pkg/roi"
	"breastimage/pkg/transform"
)

var (
	roiCenter     []float64
	roiRadius     []float64
	transformPath string
	clusterIndex  int
	clusterCount  int
	clusterSize   string
	clusterShape  string
	clusterDist   string
	rulerCoords   []float64
	subtlety      int
	density       int
	birads        string
	pathology     string
)

var locateCmd = &cobra.Command{
	Use:   "locate [volume]",
	Short: "Map a RAS region of interest onto the voxel grid",
	Long: `Map an ROI given by its RAS centre and radius onto the voxel grid of a volume.
The ROI may be placed under a linear transform read from a YAML file.
A ruler across the cluster sets its measured size, and the case assessment
(subtlety, density, BI-RADS category, pathology) is validated and echoed.
Prints the clipped voxel box, the cluster record and intensity statistics.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)

	locateCmd.Flags().Float64SliceVar(&roiCenter, "center", nil, "ROI centre in RAS mm as x,y,z")
	locateCmd.Flags().Float64SliceVar(&roiRadius, "radius", nil, "ROI radius in RAS mm as x,y,z")
	locateCmd.Flags().StringVar(&transformPath, "transform", "", "YAML file with the ROI parent linear transform")
	locateCmd.Flags().IntVar(&clusterIndex, "cluster", 1, "Calcification cluster number")
	locateCmd.Flags().IntVar(&clusterCount, "count", 0, "Number of calcifications in the cluster")
	locateCmd.Flags().StringVar(&clusterSize, "size", "", "Calcification size descriptor")
	locateCmd.Flags().StringVar(&clusterShape, "shape", "", "Calcification shape descriptor")
	locateCmd.Flags().StringVar(&clusterDist, "distribution", "", "Calcification distribution descriptor")
	locateCmd.Flags().Float64SliceVar(&rulerCoords, "ruler", nil, "Ruler across the cluster in RAS mm as x1,y1,z1,x2,y2,z2")
	locateCmd.Flags().IntVar(&subtlety, "subtlety", 0, "Finding subtlety, 1 (subtle) to 5 (obvious)")
	locateCmd.Flags().IntVar(&density, "density", 0, "ACR breast density, 1 to 4")
	locateCmd.Flags().StringVar(&birads, "birads", "", "BI-RADS assessment category, e.g. 4A")
	locateCmd.Flags().StringVar(&pathology, "pathology", "", "Pathology result: benign or malignant")

	locateCmd.MarkFlagRequired("center")
	locateCmd.MarkFlagRequired("radius")
}

func vecFlag(name string, values []float64) (r3.Vec, error) {
	if len(values) != 3 {
		return r3.Vec{}, fmt.Errorf("--%s needs 3 values, got %d", name, len(values))
	}
	return r3.Vec{X: values[0], Y: values[1], Z: values[2]}, nil
}

func runLocate(cmd *cobra.Command, args []string) error {
	center, err := vecFlag("center", roiCenter)
	if err != nil {
		return err
	}
	radius, err := vecFlag("radius", roiRadius)
	if err != nil {
		return err
	}
	assessment, err := assessmentFlags()
	if err != nil {
		return err
	}

	src, err := loadVolume(args[0])
	if err != nil {
		return fmt.Errorf("failed to load volume: %w", err)
	}

	r := &models.ROI{Name: fmt.Sprintf("R%d", clusterIndex), Center: center, Radius: radius}
	if transformPath != "" {
		parent, err := transform.LoadLinear(transformPath)
		if err != nil {
			return err
		}
		r.Parent = parent
	}

	locator := roi.NewLocator(cfg.DegeneratePolicy(), logger())
	box, err := locator.Locate(src.volume, r)
	if err != nil {
		return fmt.Errorf("failed to locate ROI: %w", err)
	}

	cluster := models.NewCluster(clusterIndex, r, box)
	cluster.Count = clusterCount
	cluster.Size = clusterSize
	cluster.Shape = clusterShape
	cluster.Distribution = clusterDist
	if rulerCoords != nil {
		ruler, err := models.NewRuler(fmt.Sprintf("M%d", clusterIndex), rulerCoords)
		if err != nil {
			return err
		}
		cluster.Measure(ruler)
	}

	fmt.Println("ROI Location")
	fmt.Println("============")
	fmt.Printf("Volume: %s %v %v\n", src.volume.Name, src.volume.ImageData().Dims, src.volume.ImageData().Scalar)
	fmt.Printf("RAS centre: (%.3f, %.3f, %.3f)\n", center.X, center.Y, center.Z)
	fmt.Printf("RAS radius: (%.3f, %.3f, %.3f)\n\n", radius.X, radius.Y, radius.Z)

	fmt.Println("Voxel box:")
	fmt.Printf("  Extent: %v\n", box.Extent())
	fmt.Printf("  IJK centre: %v\n", box.Center)
	fmt.Printf("  IJK radius: %v\n", box.Radius)
	if box.Degenerate {
		fmt.Println("  ROI does not overlap the volume; box collapsed onto the nearest voxel")
	}

	fmt.Printf("\nCluster %d:\n", cluster.Index)
	fmt.Printf("  Count: %d\n", cluster.Count)
	fmt.Printf("  Size: %s\n", cluster.Size)
	if cluster.SizeMM > 0 {
		fmt.Printf("  Measured size: %.2f mm\n", cluster.SizeMM)
	}
	fmt.Printf("  Shape: %s\n", cluster.Shape)
	fmt.Printf("  Distribution: %s\n", cluster.Distribution)

	fields := assessment.Fields()
	fmt.Println("\nAssessment:")
	fmt.Printf("  Subtlety: %s\n", fields["subtlety"])
	fmt.Printf("  Density: %s\n", fields["density"])
	fmt.Printf("  Assessment: %s\n", fields["assessment"])
	fmt.Printf("  Pathology: %s\n", fields["pathology"])

	stats, err := roi.Stats(src.volume.ImageData(), box)
	if err != nil {
		return err
	}
	fmt.Println("\nIntensity statistics:")
	fmt.Printf("  Voxels: %d\n", stats.Count)
	fmt.Printf("  Min/Max: %.1f / %.1f\n", stats.Min, stats.Max)
	fmt.Printf("  Mean: %.3f (std %.3f)\n", stats.Mean, stats.StdDev)
	fmt.Printf("  Median: %.1f\n", stats.Median)

	return nil
}

// assessmentFlags builds and validates the case assessment from the flags
func assessmentFlags() (models.Assessment, error) {
	category, err := models.ParseBIRADS(birads)
	if err != nil {
		return models.Assessment{}, err
	}
	result, err := models.ParsePathology(pathology)
	if err != nil {
		return models.Assessment{}, err
	}
	a := models.Assessment{
		Subtlety:  subtlety,
		Density:   density,
		Category:  category,
		Pathology: result,
	}
	return a, a.Validate()
}
