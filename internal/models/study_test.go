package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModality(t *testing.T) {
	tests := map[string]Modality{
		"CT_TEP":     ModalityCTTEP,
		"ct_tep":     ModalityCTTEP,
		" CT_SMART ": ModalityCTSmart,
	}
	for in, want := range tests {
		got, err := ParseModality(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "UNKNOWN", "MRI_DKI"} {
		_, err := ParseModality(bad)
		assert.Error(t, err, bad)
	}
}

func TestModalityString(t *testing.T) {
	for _, m := range Modalities() {
		back, err := ParseModality(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
	assert.Equal(t, "Modality(42)", Modality(42).String())
}

func TestNewStudyInfo(t *testing.T) {
	a := NewStudyInfo(ModalityCTTEP, "P-7", "chest")
	b := NewStudyInfo(ModalityCTTEP, "P-7", "chest")

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "P-7", a.PatientID)
	assert.True(t, strings.HasPrefix(a.String(), "study "+a.ID.String()[:8]))
	assert.Contains(t, a.String(), "CT_TEP")

	anon := StudyInfo{ID: uuid.New(), Modality: ModalityCTSmart}
	assert.Contains(t, anon.String(), "anonymous")
}
