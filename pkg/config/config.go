// Package config provides configuration loading and management for vesselscan.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"vesselscan/internal/models"
)

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNoProfile is returned when a modality has no configured profile.
	ErrNoProfile = errors.New("config: no profile for modality")
)

// ModalityProfile holds the vesselness parameters tuned for one modality.
type ModalityProfile struct {
	// DisplayName is the human-readable engine name
	DisplayName string `yaml:"displayName"`

	// Scales are the physical Gaussian sigmas in mm
	Scales []float64 `yaml:"scales"`

	// C is the structure-strength constant of the Frangi measure
	C float64 `yaml:"c"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers bounds the goroutines used by the filter; 0 means all CPUs
		Workers int `yaml:"workers"`

		// CropToMask restricts smoothing to the bounding box of the mask
		CropToMask bool `yaml:"cropToMask"`
	} `yaml:"processing"`

	// Frangi shape parameters shared by every modality
	Vesselness struct {
		// Alpha controls sensitivity to plate-like structures
		Alpha float64 `yaml:"alpha"`

		// Beta controls sensitivity to blob-like structures
		Beta float64 `yaml:"beta"`
	} `yaml:"vesselness"`

	// Modalities maps a modality name (CT_TEP, CT_SMART) to its profile.
	// A profile given in the file replaces the default one entirely.
	Modalities map[string]ModalityProfile `yaml:"modalities"`

	// Report parameters
	Report struct {
		// HighThreshold is the score above which a voxel counts as vessel-like
		HighThreshold float64 `yaml:"highThreshold"`
	} `yaml:"report"`

	// Output parameters
	Output struct {
		// SaveSlices writes axial slices of the score and label volumes
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is the directory for saved slices
		SlicesDir string `yaml:"slicesDir"`

		// PlotHistogram writes a histogram of masked scores
		PlotHistogram bool `yaml:"plotHistogram"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.CropToMask = true

	cfg.Vesselness.Alpha = 0.5
	cfg.Vesselness.Beta = 0.5

	cfg.Modalities = map[string]ModalityProfile{
		models.ModalityCTTEP.String(): {
			DisplayName: "CT Pulmonary Embolism",
			Scales:      []float64{1, 2, 3, 4},
			C:           100,
		},
		models.ModalityCTSmart.String(): {
			DisplayName: "CT Brain Ischemia",
			Scales:      []float64{0.5, 1, 1.5},
			C:           50,
		},
	}

	cfg.Report.HighThreshold = 0.5

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "slices"
	cfg.Output.PlotHistogram = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	defaults := cfg.Modalities
	cfg.Modalities = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	profiles, err := canonicalProfiles(cfg.Modalities)
	if err != nil {
		return nil, err
	}
	cfg.Modalities = defaults
	for name, p := range profiles {
		cfg.Modalities[name] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate reports the first invalid setting, wrapped around ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Processing.Workers < 0 {
		return fmt.Errorf("processing.workers = %d: %w", c.Processing.Workers, ErrInvalidConfig)
	}
	if !positive(c.Vesselness.Alpha) || !positive(c.Vesselness.Beta) {
		return fmt.Errorf("vesselness alpha=%v beta=%v must be positive: %w",
			c.Vesselness.Alpha, c.Vesselness.Beta, ErrInvalidConfig)
	}
	if !positive(c.Report.HighThreshold) || c.Report.HighThreshold > 1 {
		return fmt.Errorf("report.highThreshold = %v must be in (0, 1]: %w", c.Report.HighThreshold, ErrInvalidConfig)
	}

	names := make([]string, 0, len(c.Modalities))
	for name := range c.Modalities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m, err := models.ParseModality(name)
		if err != nil {
			return fmt.Errorf("modalities.%s: %v: %w", name, err, ErrInvalidConfig)
		}
		if name != m.String() {
			return fmt.Errorf("modalities.%s must be spelled %s: %w", name, m, ErrInvalidConfig)
		}
		p := c.Modalities[name]
		if len(p.Scales) == 0 {
			return fmt.Errorf("modalities.%s.scales is empty: %w", name, ErrInvalidConfig)
		}
		for _, s := range p.Scales {
			if !positive(s) {
				return fmt.Errorf("modalities.%s.scales contains %v: %w", name, s, ErrInvalidConfig)
			}
		}
		if !positive(p.C) {
			return fmt.Errorf("modalities.%s.c = %v: %w", name, p.C, ErrInvalidConfig)
		}
	}
	return nil
}

// canonicalProfiles rekeys profiles read from a file by the canonical
// modality name, so that "ct_tep" and "CT_TEP" name the same profile.
func canonicalProfiles(in map[string]ModalityProfile) (map[string]ModalityProfile, error) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]ModalityProfile, len(in))
	for _, name := range names {
		m, err := models.ParseModality(name)
		if err != nil {
			return nil, fmt.Errorf("modalities.%s: %v: %w", name, err, ErrInvalidConfig)
		}
		if _, dup := out[m.String()]; dup {
			return nil, fmt.Errorf("modalities.%s: %s configured twice: %w", name, m, ErrInvalidConfig)
		}
		out[m.String()] = in[name]
	}
	return out, nil
}

// Profile returns a copy of the profile configured for modality m.
func (c *Config) Profile(m models.Modality) (ModalityProfile, error) {
	p, ok := c.Modalities[m.String()]
	if !ok {
		return ModalityProfile{}, fmt.Errorf("%s: %w", m, ErrNoProfile)
	}
	p.Scales = append([]float64(nil), p.Scales...)
	return p, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
