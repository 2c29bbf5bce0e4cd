package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselscan/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	tep, err := cfg.Profile(models.ModalityCTTEP)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, tep.Scales)
	assert.Equal(t, 100.0, tep.C)

	smart, err := cfg.Profile(models.ModalityCTSmart)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1, 1.5}, smart.Scales)
	assert.Equal(t, 50.0, smart.C)
}

func TestProfileReturnsCopy(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.Profile(models.ModalityCTTEP)
	require.NoError(t, err)
	p.Scales[0] = 99

	again, err := cfg.Profile(models.ModalityCTTEP)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Scales[0])
}

func TestProfileMissing(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.Profile(models.ModalityUnknown)
	assert.True(t, errors.Is(err, ErrNoProfile))
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vesselscan.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vesselscan.yaml")
	content := `
processing:
  workers: 2
vesselness:
  alpha: 0.4
modalities:
  CT_TEP:
    displayName: Pulmonary CTA
    scales: [1.5, 2.5]
    c: 80
output:
  saveSlices: true
  slicesDir: out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Processing.Workers)
	assert.True(t, cfg.Processing.CropToMask, "unset keys keep their defaults")
	assert.Equal(t, 0.4, cfg.Vesselness.Alpha)
	assert.Equal(t, 0.5, cfg.Vesselness.Beta)
	assert.True(t, cfg.Output.SaveSlices)
	assert.Equal(t, "out", cfg.Output.SlicesDir)

	tep, err := cfg.Profile(models.ModalityCTTEP)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, tep.Scales)
	assert.Equal(t, 80.0, tep.C)

	smart, err := cfg.Profile(models.ModalityCTSmart)
	require.NoError(t, err)
	assert.Equal(t, 50.0, smart.C)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "processing: [",
		"negative alpha": "vesselness:\n  alpha: -1\n",
		"empty scales":   "modalities:\n  CT_TEP:\n    scales: []\n    c: 100\n",
		"zero c":         "modalities:\n  CT_SMART:\n    scales: [1]\n",
		"unknown key":    "modalities:\n  MRI_DKI:\n    scales: [1]\n    c: 10\n",
		"threshold":      "report:\n  highThreshold: 2\n",
		"duplicate key":  "modalities:\n  CT_TEP:\n    scales: [1]\n    c: 10\n  ct_tep:\n    scales: [2]\n    c: 20\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigLowercaseModalityKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vesselscan.yaml")
	content := "modalities:\n  ct_tep:\n    scales: [7]\n    c: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.Modalities, "ct_tep")

	tep, err := cfg.Profile(models.ModalityCTTEP)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, tep.Scales)
	assert.Equal(t, 3.0, tep.C)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.Workers = -1
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	p := cfg.Modalities["CT_TEP"]
	p.Scales = []float64{1, 0}
	cfg.Modalities["CT_TEP"] = p
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Modalities["ct_smart"] = cfg.Modalities["CT_SMART"]
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig), "keys must use the canonical spelling")
}
