package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Volume is a dense 3D scalar field of unsigned 8-bit samples.
//
// Samples are stored with z varying fastest, then y, then x, so the sample
// at (x, y, z) lives at x*Height*Depth + y*Depth + z. This is the layout the
// single-channel 3D texture upload expects.
type Volume struct {
	// Width, Height and Depth are the dimensions of the field in voxels
	Width  int
	Height int
	Depth  int

	// Data holds Width*Height*Depth samples
	Data []uint8
}

// MaxDimension bounds each volume dimension so it fits a 3D texture size
const MaxDimension = math.MaxInt32

// VoxelCount returns width*height*depth. It reports false when a dimension
// is not in 1..MaxDimension or the product overflows int.
func VoxelCount(width, height, depth int) (int, bool) {
	count := 1
	for _, d := range [3]int{width, height, depth} {
		if d <= 0 || d > MaxDimension || d > math.MaxInt/count {
			return 0, false
		}
		count *= d
	}
	return count, true
}

// NewVolume wraps data as a volume after checking that its length matches
// the declared dimensions. The volume takes ownership of data.
func NewVolume(width, height, depth int, data []uint8) (*Volume, error) {
	count, ok := VoxelCount(width, height, depth)
	if !ok {
		return nil, fmt.Errorf("volume dimensions %dx%dx%d are out of range", width, height, depth)
	}
	if len(data) != count {
		return nil, fmt.Errorf("volume %dx%dx%d needs %d samples, got %d",
			width, height, depth, count, len(data))
	}
	return &Volume{Width: width, Height: height, Depth: depth, Data: data}, nil
}

// Len returns the number of samples in the volume
func (v *Volume) Len() int {
	return v.Width * v.Height * v.Depth
}

// Index returns the offset of (x, y, z) in Data. It panics when the
// coordinate lies outside the volume.
func (v *Volume) Index(x, y, z int) int {
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height || z < 0 || z >= v.Depth {
		panic(fmt.Sprintf("voxel (%d, %d, %d) outside %dx%dx%d volume", x, y, z, v.Width, v.Height, v.Depth))
	}
	return x*v.Height*v.Depth + y*v.Depth + z
}

// At returns the sample at (x, y, z)
func (v *Volume) At(x, y, z int) uint8 {
	return v.Data[v.Index(x, y, z)]
}

// Clone returns a deep copy of the volume
func (v *Volume) Clone() *Volume {
	data := make([]uint8, len(v.Data))
	copy(data, v.Data)
	return &Volume{Width: v.Width, Height: v.Height, Depth: v.Depth, Data: data}
}

// GaussianSource is one term of a synthesized field:
// Amplitude * exp(-Sharpness * |p - Center|^2)
type GaussianSource struct {
	Center    r3.Vec
	Amplitude float64
	Sharpness float64
}

// Contribution evaluates the source at p
func (g GaussianSource) Contribution(p r3.Vec) float64 {
	return g.Amplitude * math.Exp(-g.Sharpness*r3.Norm2(r3.Sub(p, g.Center)))
}

// VolumeMetadata is the content of a .dat sidecar file.
type VolumeMetadata struct {
	// Dims holds width, height and depth in voxels
	Dims [3]int

	// AspectRatios is the intended width:height:depth ratio. It is read
	// and carried along but never used to resample the field.
	AspectRatios [3]int
}

// Voxels returns the number of samples the metadata describes, or -1 when
// the dimensions are out of range
func (m VolumeMetadata) Voxels() int {
	count, ok := VoxelCount(m.Dims[0], m.Dims[1], m.Dims[2])
	if !ok {
		return -1
	}
	return count
}
