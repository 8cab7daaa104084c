package models

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestNewVolume verifies dimension and length validation
func TestNewVolume(t *testing.T) {
	tests := []struct {
		name    string
		w, h, d int
		n       int
		wantErr bool
	}{
		{"matching", 2, 3, 4, 24, false},
		{"short buffer", 2, 3, 4, 23, true},
		{"long buffer", 2, 2, 2, 9, true},
		{"zero width", 0, 2, 2, 0, true},
		{"negative depth", 2, 2, -1, 0, true},
		{"overflowing dimensions", 2147483647, 2147483647, 2147483647, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vol, err := NewVolume(tc.w, tc.h, tc.d, make([]uint8, tc.n))
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %dx%dx%d with %d samples", tc.w, tc.h, tc.d, tc.n)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if vol.Len() != tc.n {
				t.Errorf("Expected %d samples, got %d", tc.n, vol.Len())
			}
		})
	}
}

// TestIndexLayout verifies z varies fastest, then y, then x
func TestIndexLayout(t *testing.T) {
	vol, err := NewVolume(2, 3, 4, make([]uint8, 24))
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	expected := 0
	for x := 0; x < vol.Width; x++ {
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				if got := vol.Index(x, y, z); got != expected {
					t.Errorf("Index(%d, %d, %d) = %d, expected %d", x, y, z, got, expected)
				}
				expected++
			}
		}
	}

	if vol.Index(1, 2, 3) != 1*3*4+2*4+3 {
		t.Errorf("Unexpected index for last voxel: %d", vol.Index(1, 2, 3))
	}
}

// TestIndexOutOfRange verifies Index panics outside the volume
func TestIndexOutOfRange(t *testing.T) {
	vol, _ := NewVolume(2, 2, 2, make([]uint8, 8))

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for out-of-range voxel")
		}
	}()
	vol.Index(2, 0, 0)
}

// TestClone verifies a clone does not share storage
func TestClone(t *testing.T) {
	vol, _ := NewVolume(1, 1, 2, []uint8{7, 9})
	c := vol.Clone()
	c.Data[0] = 0

	if vol.Data[0] != 7 {
		t.Errorf("Clone shares data with original")
	}
	if c.Width != 1 || c.Height != 1 || c.Depth != 2 {
		t.Errorf("Clone dimensions differ: %dx%dx%d", c.Width, c.Height, c.Depth)
	}
}

// TestGaussianContribution checks the peak and decay of a single source
func TestGaussianContribution(t *testing.T) {
	g := GaussianSource{Center: r3.Vec{X: 1}, Amplitude: 90, Sharpness: 5}

	if got := g.Contribution(r3.Vec{X: 1}); got != 90 {
		t.Errorf("Expected peak 90 at center, got %f", got)
	}

	// Distance 1 along y: 90 * exp(-5)
	want := 90 * math.Exp(-5)
	if got := g.Contribution(r3.Vec{X: 1, Y: 1}); math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %f at unit distance, got %f", want, got)
	}
}

// TestMetadataVoxels verifies the voxel count derived from dims
func TestMetadataVoxels(t *testing.T) {
	m := VolumeMetadata{Dims: [3]int{4, 5, 6}, AspectRatios: [3]int{1, 1, 2}}
	if m.Voxels() != 120 {
		t.Errorf("Expected 120 voxels, got %d", m.Voxels())
	}
}

// TestVoxelCount verifies out-of-range and overflowing dimensions are reported
func TestVoxelCount(t *testing.T) {
	if n, ok := VoxelCount(2, 3, 4); !ok || n != 24 {
		t.Errorf("Expected 24 voxels, got %d (ok=%v)", n, ok)
	}
	if _, ok := VoxelCount(MaxDimension, MaxDimension, MaxDimension); ok {
		t.Error("Expected overflow to be reported")
	}
	if _, ok := VoxelCount(1, 0, 1); ok {
		t.Error("Expected zero dimension to be rejected")
	}

	m := VolumeMetadata{Dims: [3]int{MaxDimension, MaxDimension, MaxDimension}}
	if m.Voxels() != -1 {
		t.Errorf("Expected -1 for overflowing metadata, got %d", m.Voxels())
	}
}
