package vesselness

import (
	"fmt"
	"sync"

	"vesselscan/internal/models"
	"vesselscan/pkg/eigen"
	"vesselscan/pkg/hessian"
)

// ProgressCallback reports progress during multiscale analysis. If message
// is not empty it should be displayed to the user; otherwise the callback
// should update a progress indicator with completed out of total scales.
type ProgressCallback func(completed, total int, message string)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWorkers bounds the total number of goroutines used by Run. Zero or a
// negative value means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		a.workers = n
	}
}

// WithProgress installs a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(a *Aggregator) {
		a.progressCallback = cb
	}
}

// WithCropToMask selects whether each scale smooths only the bounding box of
// the mask (the default) or the whole volume. Scores are identical either way.
func WithCropToMask(on bool) Option {
	return func(a *Aggregator) {
		a.fullVolume = !on
	}
}

// Aggregator runs the Frangi filter at several physical scales and fuses the
// per-scale responses by taking the voxel-wise maximum.
type Aggregator struct {
	scorer           Scorer
	workers          int
	fullVolume       bool
	progressCallback ProgressCallback
	progressMutex    sync.Mutex
}

// NewAggregator creates an aggregator around scorer.
func NewAggregator(scorer Scorer, opts ...Option) *Aggregator {
	a := &Aggregator{scorer: scorer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetProgressCallback replaces the progress callback.
func (a *Aggregator) SetProgressCallback(cb ProgressCallback) {
	a.progressCallback = cb
}

// Scorer returns the scorer used at every scale.
func (a *Aggregator) Scorer() Scorer {
	return a.scorer
}

// ScaleResult is the response of a single scale, compacted to the mask.
type ScaleResult struct {
	Scale      float64
	Indices    []int
	VoxelSigma []float64
	Scores     []float64
	Eigen      eigen.Triplets
}

// Response is the fused multiscale vesselness over the masked voxels. Entry i
// of every slice describes the voxel at flat index Indices[i].
type Response struct {
	Shape   models.Shape
	Scales  models.ScaleSet
	Indices []int

	// Scores is the maximum vesselness over all scales.
	Scores []float64

	// BestScale is the physical sigma (mm) that produced Scores[i].
	BestScale []float64

	// L1, L2, L3 are the ordered eigenvalues at BestScale.
	L1, L2, L3 []float64
}

// Len returns the number of masked voxels.
func (r *Response) Len() int {
	return len(r.Indices)
}

// Dense expands the scores into a full volume of the given shape, with 0 at
// every unmasked voxel.
func (r *Response) Dense(shape models.Shape) *models.Volume {
	vol := models.NewVolume(shape[0], shape[1], shape[2])
	for i, idx := range r.Indices {
		vol.Data[idx] = r.Scores[i]
	}
	return vol
}

// Run computes the fused vesselness of vol over the masked voxels.
//
// Every input is validated before any smoothing takes place: the mask must
// match the volume shape, spacing must have one entry per axis and every
// scale must produce a valid voxel sigma. Shape errors are returned wrapped
// around the hessian sentinels.
//
// Parameters:
//   - vol: CT volume in Hounsfield Units, not modified
//   - mask: region of interest, same shape as vol
//   - spacing: voxel spacing in mm, (Z, Y, X) order
//   - scales: physical sigmas in mm
//
// Returns:
//   - the fused response; ties between scales keep the first scale in order
func (a *Aggregator) Run(vol *models.Volume, mask *models.Mask, spacing models.Spacing, scales models.ScaleSet) (*Response, error) {
	sigmas, err := a.prepare(vol, mask, spacing, scales)
	if err != nil {
		return nil, err
	}

	total := len(scales)
	a.reportProgress(0, 0, fmt.Sprintf("Multiscale vesselness: %d scales over %d voxels", total, mask.Count()))

	scaleWorkers, inner := a.split(total)
	results := make([]*ScaleResult, total)
	errs := make([]error, total)

	var counterMutex sync.Mutex
	completed := 0

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < scaleWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				results[k], errs[k] = a.runScale(vol, mask, scales[k], sigmas[k], inner)

				counterMutex.Lock()
				completed++
				a.reportProgress(completed, total, "")
				counterMutex.Unlock()
			}
		}()
	}
	for k := range scales {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	resp := fuse(results, vol.Shape())
	a.reportProgress(0, 0, "Multiscale vesselness complete")
	return resp, nil
}

// RunScale computes the vesselness of the masked voxels at a single physical
// sigma, with the same validation as Run.
func (a *Aggregator) RunScale(vol *models.Volume, mask *models.Mask, spacing models.Spacing, scale float64) (*ScaleResult, error) {
	sigmas, err := a.prepare(vol, mask, spacing, models.ScaleSet{scale})
	if err != nil {
		return nil, err
	}
	return a.runScale(vol, mask, scale, sigmas[0], a.workers)
}

// prepare validates every input and returns the voxel sigma of each scale.
func (a *Aggregator) prepare(vol *models.Volume, mask *models.Mask, spacing models.Spacing, scales models.ScaleSet) ([][]float64, error) {
	if err := a.scorer.Validate(); err != nil {
		return nil, err
	}
	if len(scales) == 0 {
		return nil, ErrNoScales
	}
	if vol == nil {
		return nil, fmt.Errorf("nil volume: %w", hessian.ErrInvalidVolume)
	}
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, hessian.ErrInvalidVolume)
	}
	if mask == nil {
		return nil, fmt.Errorf("nil mask: %w", hessian.ErrShapeMismatch)
	}
	if mask.Shape() != vol.Shape() || len(mask.Data) != len(vol.Data) {
		return nil, fmt.Errorf("mask %s vs volume %s: %w", mask.Shape(), vol.Shape(), hessian.ErrShapeMismatch)
	}
	if err := hessian.CheckSpacing(vol, spacing); err != nil {
		return nil, err
	}

	sigmas := make([][]float64, len(scales))
	for k, s := range scales {
		sigma, err := hessian.VoxelSigmaScalar(s, spacing)
		if err != nil {
			return nil, fmt.Errorf("scale %v mm: %w", s, err)
		}
		sigmas[k] = sigma
	}
	return sigmas, nil
}

func (a *Aggregator) runScale(vol *models.Volume, mask *models.Mask, scale float64, sigma []float64, workers int) (*ScaleResult, error) {
	a.reportProgress(0, 0, fmt.Sprintf("Computing Hessian at sigma=%.2f mm (voxel sigma %.2f, %.2f, %.2f)",
		scale, sigma[0], sigma[1], sigma[2]))

	computer := hessian.NewComputer(workers)
	var elements *hessian.Elements
	var err error
	if a.fullVolume {
		elements, err = computer.Compute(vol, sigma)
		if err == nil {
			elements = elements.Gather(mask.Indices())
		}
	} else {
		elements, err = computer.ComputeMasked(vol, sigma, mask)
	}
	if err != nil {
		return nil, fmt.Errorf("scale %v mm: %w", scale, err)
	}

	solver := &eigen.Solver{Workers: workers}
	triplets := solver.Solve(elements)

	return &ScaleResult{
		Scale:      scale,
		Indices:    elements.Index,
		VoxelSigma: sigma,
		Scores:     a.scorer.ScoreAll(triplets),
		Eigen:      triplets,
	}, nil
}

// split divides the worker budget between concurrent scales and the
// goroutines each scale may use internally.
func (a *Aggregator) split(scales int) (scaleWorkers, inner int) {
	total := (&hessian.Computer{Workers: a.workers}).WorkerCount()
	scaleWorkers = total
	if scaleWorkers > scales {
		scaleWorkers = scales
	}
	inner = total / scaleWorkers
	if inner < 1 {
		inner = 1
	}
	return scaleWorkers, inner
}

// fuse keeps, for every voxel, the highest score over all scales. Results
// are visited in scale order and only a strictly greater score replaces the
// current best.
func fuse(results []*ScaleResult, shape models.Shape) *Response {
	first := results[0]
	n := len(first.Scores)

	resp := &Response{
		Shape:     shape,
		Indices:   first.Indices,
		Scales:    make(models.ScaleSet, len(results)),
		Scores:    append([]float64(nil), first.Scores...),
		BestScale: make([]float64, n),
		L1:        append([]float64(nil), first.Eigen.L1...),
		L2:        append([]float64(nil), first.Eigen.L2...),
		L3:        append([]float64(nil), first.Eigen.L3...),
	}
	for i := range resp.BestScale {
		resp.BestScale[i] = first.Scale
	}

	for k, r := range results {
		resp.Scales[k] = r.Scale
		if k == 0 {
			continue
		}
		for i, s := range r.Scores {
			if s > resp.Scores[i] {
				resp.Scores[i] = s
				resp.BestScale[i] = r.Scale
				resp.L1[i] = r.Eigen.L1[i]
				resp.L2[i] = r.Eigen.L2[i]
				resp.L3[i] = r.Eigen.L3[i]
			}
		}
	}
	return resp
}

// reportProgress serializes callback invocations across scale goroutines.
func (a *Aggregator) reportProgress(completed, total int, message string) {
	a.progressMutex.Lock()
	defer a.progressMutex.Unlock()
	if a.progressCallback != nil {
		a.progressCallback(completed, total, message)
	}
}
