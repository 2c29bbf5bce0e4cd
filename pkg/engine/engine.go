// Package engine binds the vesselness filter and the pseudocolor classifier
// into one analysis per imaging modality.
package engine

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"vesselscan/internal/models"
	"vesselscan/pkg/config"
	"vesselscan/pkg/hessian"
	"vesselscan/pkg/pseudocolor"
	"vesselscan/pkg/report"
	"vesselscan/pkg/vesselness"
)

var (
	// ErrUnknownModality is returned by New for a modality without an engine.
	ErrUnknownModality = errors.New("engine: unknown modality")

	// ErrModalityMismatch is returned when a study is handed to the wrong engine.
	ErrModalityMismatch = errors.New("engine: study modality does not match engine")

	// ErrNoVolume is returned when the input carries no volume.
	ErrNoVolume = errors.New("engine: input has no volume")
)

// LogFunc receives human-readable progress messages.
type LogFunc func(message string)

// HURange is an inclusive Hounsfield Unit interval.
type HURange struct {
	Min, Max float64
}

// DomainInfo describes the anatomical region an engine searches.
type DomainInfo struct {
	Name        string
	Description string
	Structures  []string

	// HURange is nil when the domain is an anatomical container rather than
	// a density window.
	HURange *HURange
}

// Input is the data handed to an engine. A nil Mask selects every voxel and
// an empty Scales uses the modality profile.
type Input struct {
	Volume  *models.Volume
	Mask    *models.Mask
	Spacing models.Spacing
	Scales  models.ScaleSet
}

// Result holds every artifact of one analysis.
type Result struct {
	Study    models.StudyInfo
	Modality models.Modality
	Domain   DomainInfo

	// Response is the fused vesselness compacted to the mask
	Response *vesselness.Response

	// Vesselness is the dense score volume, 0 outside the mask
	Vesselness *models.Volume

	// Labels is the pseudocolor tissue label of every voxel
	Labels *models.LabelVolume

	Mask    *models.Mask
	Scales  models.ScaleSet
	C       float64
	Summary report.Summary
}

// Engine analyzes studies of one modality.
type Engine interface {
	Modality() models.Modality
	DisplayName() string
	Domain() DomainInfo
	Analyze(study models.StudyInfo, in Input) (*Result, error)
}

// Option configures an engine.
type Option func(*base)

// WithLogger routes progress messages to fn.
func WithLogger(fn LogFunc) Option {
	return func(b *base) {
		b.log = fn
	}
}

// WithProgress installs a per-scale progress callback.
func WithProgress(cb vesselness.ProgressCallback) Option {
	return func(b *base) {
		b.progress = cb
	}
}

// New returns the engine registered for modality m, parameterized by cfg.
// A nil cfg uses config.DefaultConfig().
func New(m models.Modality, cfg *config.Config, opts ...Option) (Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	switch m {
	case models.ModalityCTTEP:
		b, err := newBase(m, cfg, opts)
		if err != nil {
			return nil, err
		}
		return &TEPEngine{base: b}, nil
	case models.ModalityCTSmart:
		b, err := newBase(m, cfg, opts)
		if err != nil {
			return nil, err
		}
		return &IschemiaEngine{base: b}, nil
	default:
		return nil, fmt.Errorf("%s: %w", m, ErrUnknownModality)
	}
}

// NewFromName resolves a modality code such as "CT_TEP" and calls New.
func NewFromName(name string, cfg *config.Config, opts ...Option) (Engine, error) {
	m, err := models.ParseModality(name)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnknownModality)
	}
	return New(m, cfg, opts...)
}

// base carries the pipeline shared by every engine.
type base struct {
	modality      models.Modality
	profile       config.ModalityProfile
	scorer        vesselness.Scorer
	workers       int
	cropToMask    bool
	highThreshold float64
	log           LogFunc
	progress      vesselness.ProgressCallback
}

func newBase(m models.Modality, cfg *config.Config, opts []Option) (*base, error) {
	profile, err := cfg.Profile(m)
	if err != nil {
		return nil, err
	}
	b := &base{
		modality: m,
		profile:  profile,
		scorer: vesselness.Scorer{
			Alpha: cfg.Vesselness.Alpha,
			Beta:  cfg.Vesselness.Beta,
			C:     profile.C,
		},
		workers:       cfg.Processing.Workers,
		cropToMask:    cfg.Processing.CropToMask,
		highThreshold: cfg.Report.HighThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.scorer.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Modality returns the modality this engine serves.
func (b *base) Modality() models.Modality {
	return b.modality
}

// DisplayName returns the human-readable engine name.
func (b *base) DisplayName() string {
	return b.profile.DisplayName
}

func (b *base) logf(format string, args ...any) {
	if b.log != nil {
		b.log(fmt.Sprintf(format, args...))
	}
}

// analyze runs the shared pipeline: vesselness over the mask, pseudocolor
// labels over the whole volume and the descriptive summary.
func (b *base) analyze(study models.StudyInfo, in Input, domain DomainInfo) (*Result, error) {
	if study.Modality != models.ModalityUnknown && study.Modality != b.modality {
		return nil, fmt.Errorf("%s handed to %s engine: %w", study.Modality, b.modality, ErrModalityMismatch)
	}
	if in.Volume == nil {
		return nil, ErrNoVolume
	}
	if err := in.Volume.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", b.modality, err, hessian.ErrInvalidVolume)
	}

	mask := in.Mask
	if mask == nil {
		mask = models.FullMask(in.Volume.Shape())
	}
	scales := in.Scales
	if len(scales) == 0 {
		scales = models.ScaleSet(b.profile.Scales)
	}

	b.logf("[%s] %s: analyzing %s volume, %d masked voxels, scales %v mm, c=%g",
		b.modality, study, in.Volume.Shape(), mask.Count(), []float64(scales), b.scorer.C)

	agg := vesselness.NewAggregator(b.scorer,
		vesselness.WithWorkers(b.workers),
		vesselness.WithCropToMask(b.cropToMask),
		vesselness.WithProgress(b.progress),
	)
	resp, err := agg.Run(in.Volume, mask, in.Spacing, scales)
	if err != nil {
		return nil, fmt.Errorf("%s vesselness: %w", b.modality, err)
	}

	b.logf("[%s] classifying tissue bands", b.modality)
	labels, err := pseudocolor.Classify(in.Volume)
	if err != nil {
		return nil, err
	}

	summary := report.Summarize(resp.Scores, labels, mask, in.Spacing, b.highThreshold)
	b.logf("[%s] done: max vesselness %.3f, %d voxels above %.2f",
		b.modality, summary.Max, summary.HighCount, summary.HighThreshold)

	return &Result{
		Study:      study,
		Modality:   b.modality,
		Domain:     domain,
		Response:   resp,
		Vesselness: resp.Dense(in.Volume.Shape()),
		Labels:     labels,
		Mask:       mask,
		Scales:     append(models.ScaleSet(nil), scales...),
		C:          b.scorer.C,
		Summary:    summary,
	}, nil
}

// intensityRange returns the minimum and maximum of vol.
func intensityRange(vol *models.Volume) (lo, hi float64) {
	if len(vol.Data) == 0 {
		return 0, 0
	}
	return floats.Min(vol.Data), floats.Max(vol.Data)
}
