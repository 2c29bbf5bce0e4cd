package hessian

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"vesselscan/internal/models"
)

// Truncate is the kernel half-width in standard deviations.
const Truncate = 4.0

// KernelRadius returns the half-width in voxels of the Gaussian kernel used
// for the given voxel sigma.
func KernelRadius(sigma float64) int {
	return int(Truncate*sigma + 0.5)
}

// GaussianKernel builds a normalized, symmetric 1D Gaussian kernel of length
// 2*KernelRadius(sigma)+1.
func GaussianKernel(sigma float64) []float64 {
	radius := KernelRadius(sigma)
	kernel := make([]float64, 2*radius+1)
	inv := -0.5 / (sigma * sigma)
	for i := -radius; i <= radius; i++ {
		kernel[i+radius] = math.Exp(inv * float64(i*i))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// reflectIndex maps an out-of-range index onto [0, n) using half-sample
// symmetric reflection (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// Smooth applies a separable Gaussian filter with a per-axis voxel sigma and
// returns a new volume. Axes with a sigma of 0 are left untouched.
func Smooth(vol *models.Volume, sigma []float64) (*models.Volume, error) {
	return defaultComputer.Smooth(vol, sigma)
}

// Smooth applies a separable Gaussian filter using the computer's workers.
func (c *Computer) Smooth(vol *models.Volume, sigma []float64) (*models.Volume, error) {
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidVolume)
	}
	if len(sigma) != vol.Dims() {
		return nil, fmt.Errorf("sigma has %d axes, volume has %d: %w", len(sigma), vol.Dims(), ErrDimensionMismatch)
	}
	for axis, s := range sigma {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("sigma[%d] = %v: %w", axis, s, ErrInvalidSigma)
		}
	}

	out := vol.Clone()
	shape := out.Shape()
	for axis, s := range sigma {
		if s < 1e-15 {
			continue
		}
		c.smoothAxis(out.Data, shape, axis, GaussianKernel(s))
	}
	return out, nil
}

// smoothAxis convolves every line of data along axis with kernel, in place.
func (c *Computer) smoothAxis(data []float64, shape models.Shape, axis int, kernel []float64) {
	n := shape[axis]
	radius := len(kernel) / 2
	strides := [3]int{shape[1] * shape[2], shape[2], 1}
	stride := strides[axis]

	// Enumerate the starting offset of every line along axis
	var others [2]int
	k := 0
	for a := 0; a < 3; a++ {
		if a != axis {
			others[k] = a
			k++
		}
	}
	numLines := shape[others[0]] * shape[others[1]]

	c.parallelFor(numLines, func(start, end int) {
		padded := make([]float64, n+2*radius)
		line := make([]float64, n)
		for l := start; l < end; l++ {
			i0 := l / shape[others[1]]
			i1 := l % shape[others[1]]
			base := i0*strides[others[0]] + i1*strides[others[1]]

			for j := range padded {
				padded[j] = data[base+reflectIndex(j-radius, n)*stride]
			}
			for j := 0; j < n; j++ {
				line[j] = floats.Dot(kernel, padded[j:j+len(kernel)])
			}
			for j := 0; j < n; j++ {
				data[base+j*stride] = line[j]
			}
		}
	})
}

// parallelFor splits [0, n) into contiguous chunks processed concurrently.
// Each index is handled by exactly one goroutine, so results do not depend on
// the number of workers.
func (c *Computer) parallelFor(n int, fn func(start, end int)) {
	workers := c.WorkerCount()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		if n > 0 {
			fn(0, n)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// WorkerCount returns the goroutine bound of c, defaulting to runtime.NumCPU().
func (c *Computer) WorkerCount() int {
	if c == nil || c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
