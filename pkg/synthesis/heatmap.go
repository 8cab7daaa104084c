// Package synthesis builds procedural scalar fields from a sum of Gaussian
// sources sampled over the cube [-1, 1]^3.
package synthesis

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"volumeviewer/internal/models"
)

// DefaultSharpness is the exponent decay coefficient of every heat map source
const DefaultSharpness = 5.0

// ErrInvalidSize is returned when a field is requested with a non-positive size
var ErrInvalidSize = errors.New("synthesis: size must be positive")

// HeatMapSources returns the four sources of the reference heat map in
// their fixed order.
func HeatMapSources() []models.GaussianSource {
	return []models.GaussianSource{
		{Center: r3.Vec{X: 1, Y: 0, Z: 0}, Amplitude: 90, Sharpness: DefaultSharpness},
		{Center: r3.Vec{X: -1, Y: 0.30, Z: 0}, Amplitude: 120, Sharpness: DefaultSharpness},
		{Center: r3.Vec{X: 0, Y: 1, Z: 0}, Amplitude: 120, Sharpness: DefaultSharpness},
		{Center: r3.Vec{X: 0, Y: 0.04, Z: 1}, Amplitude: 170, Sharpness: DefaultSharpness},
	}
}

// Synthesizer evaluates a list of Gaussian sources on a uniform grid.
type Synthesizer struct {
	// Sources are summed in order at every grid point
	Sources []models.GaussianSource

	// NumCores bounds the number of goroutines filling x slabs.
	// Values below 1 mean runtime.NumCPU().
	NumCores int
}

// NewHeatMapSynthesizer returns a synthesizer for the reference heat map.
// A sharpness of zero keeps DefaultSharpness.
func NewHeatMapSynthesizer(sharpness float64, numCores int) *Synthesizer {
	sources := HeatMapSources()
	if sharpness != 0 {
		for i := range sources {
			sources[i].Sharpness = sharpness
		}
	}
	return &Synthesizer{Sources: sources, NumCores: numCores}
}

// Value returns the unclamped field value at p
func (s *Synthesizer) Value(p r3.Vec) float64 {
	sum := 0.0
	for _, src := range s.Sources {
		sum += src.Contribution(p)
	}
	return sum
}

// Sample converts a field value to a stored voxel: truncate toward zero,
// then clamp into [0, 255].
func Sample(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t <= 0 {
		return 0
	}
	if t >= 255 {
		return 255
	}
	return uint8(t)
}

// Coordinate returns the domain coordinate of grid index i for a grid of
// the given size. The grid starts at -1 with step 2/size, so the last
// sample stops one step short of +1.
func Coordinate(i, size int) float64 {
	return -1 + float64(i)*(2.0/float64(size))
}

// Synthesize fills a size x size x size volume. Each x slab is computed by
// one goroutine and writes a disjoint range of the buffer, so the result is
// identical regardless of NumCores.
func (s *Synthesizer) Synthesize(size int) (*models.Volume, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	data := make([]uint8, size*size*size)
	slab := size * size

	numCores := s.NumCores
	if numCores < 1 {
		numCores = runtime.NumCPU()
	}
	if numCores > size {
		numCores = size
	}

	// Precompute the axis coordinates once; every axis uses the same grid
	coords := make([]float64, size)
	for i := range coords {
		coords[i] = Coordinate(i, size)
	}

	xs := make(chan int, size)
	for x := 0; x < size; x++ {
		xs <- x
	}
	close(xs)

	var wg sync.WaitGroup
	for w := 0; w < numCores; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for x := range xs {
				out := data[x*slab : (x+1)*slab]
				idx := 0
				for y := 0; y < size; y++ {
					for z := 0; z < size; z++ {
						p := r3.Vec{X: coords[x], Y: coords[y], Z: coords[z]}
						out[idx] = Sample(s.Value(p))
						idx++
					}
				}
			}
		}()
	}
	wg.Wait()

	return models.NewVolume(size, size, size, data)
}

// HeatMap synthesizes the reference heat map of the given size
func HeatMap(size int) (*models.Volume, error) {
	return NewHeatMapSynthesizer(0, 0).Synthesize(size)
}

// NearestIndex returns the grid index whose coordinate is closest to c
// for a grid of the given size.
func NearestIndex(c float64, size int) int {
	i := int(math.Round((c + 1) * float64(size) / 2))
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
