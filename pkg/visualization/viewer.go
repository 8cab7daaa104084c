package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"volumeviewer/internal/models"
)

// Viewer inspects a voxel field without a GPU: it cuts axis-aligned slices,
// copies subregions and summarizes the sample distribution.
type Viewer struct {
	volume *models.Volume
}

// Stats summarizes the samples of a field
type Stats struct {
	Min, Max uint8
	Mean     float64
	StdDev   float64

	// Entropy of the 256-bin sample histogram, in bits
	Entropy float64

	// NonZero counts samples above 0
	NonZero int
}

// PointTester reports whether a grid point is visible. *camera.Camera satisfies it.
type PointTester interface {
	IsInsideView(p r3.Vec) bool
}

// NewViewer creates a viewer over vol. The volume is not copied.
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{volume: vol}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	vol := v.volume
	var img *image.Gray

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray(z, y, color.Gray{Y: vol.At(position, y, z)})
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, z, color.Gray{Y: vol.At(x, position, z)})
			}
		}

	case "z", "Z":
		// XY plane
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: vol.At(x, y, position)})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// ExtractRegion copies a 3D subregion into a new volume with the same layout
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*models.Volume, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	vol := v.volume
	if startX+sizeX > vol.Width || startY+sizeY > vol.Height || startZ+sizeZ > vol.Depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	data := make([]uint8, sizeX*sizeY*sizeZ)
	for x := 0; x < sizeX; x++ {
		for y := 0; y < sizeY; y++ {
			// z runs contiguously in both source and destination
			src := vol.Index(startX+x, startY+y, startZ)
			dst := x*sizeY*sizeZ + y*sizeZ
			copy(data[dst:dst+sizeZ], vol.Data[src:src+sizeZ])
		}
	}

	return models.NewVolume(sizeX, sizeY, sizeZ, data)
}

// Stats computes the sample statistics of the whole field
func (v *Viewer) Stats() Stats {
	data := v.volume.Data
	s := Stats{Min: 255}
	if len(data) == 0 {
		s.Min = 0
		return s
	}

	samples := make([]float64, len(data))
	hist := make([]float64, 256)
	for i, b := range data {
		samples[i] = float64(b)
		hist[b]++
		if b < s.Min {
			s.Min = b
		}
		if b > s.Max {
			s.Max = b
		}
		if b > 0 {
			s.NonZero++
		}
	}

	s.Mean, s.StdDev = stat.MeanStdDev(samples, nil)

	// Normalize the histogram to a distribution; stat.Entropy is in nats
	floats.Scale(1/floats.Sum(hist), hist)
	s.Entropy = stat.Entropy(hist) / math.Ln2

	return s
}

// CountVisible counts grid points whose normalized position in [-1, 1]^3
// lies inside the view of t
func (v *Viewer) CountVisible(t PointTester) int {
	vol := v.volume
	count := 0
	for x := 0; x < vol.Width; x++ {
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				p := r3.Vec{
					X: normalized(x, vol.Width),
					Y: normalized(y, vol.Height),
					Z: normalized(z, vol.Depth),
				}
				if t.IsInsideView(p) {
					count++
				}
			}
		}
	}
	return count
}

// normalized maps index i of n onto the synthesis grid coordinate
func normalized(i, n int) float64 {
	return -1 + float64(i)*(2/float64(n))
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
