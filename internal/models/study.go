package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Modality identifies which analysis engine processes a study.
type Modality int

const (
	// ModalityUnknown is the zero value and never resolves to an engine
	ModalityUnknown Modality = iota

	// ModalityCTTEP is CT pulmonary angiography (pulmonary embolism)
	ModalityCTTEP

	// ModalityCTSmart is non-contrast or perfusion CT of the brain (ischemia)
	ModalityCTSmart
)

var modalityNames = map[Modality]string{
	ModalityUnknown: "UNKNOWN",
	ModalityCTTEP:   "CT_TEP",
	ModalityCTSmart: "CT_SMART",
}

// Modalities lists every modality that resolves to an engine.
func Modalities() []Modality {
	return []Modality{ModalityCTTEP, ModalityCTSmart}
}

// String returns the canonical modality code, e.g. "CT_TEP".
func (m Modality) String() string {
	if name, ok := modalityNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Modality(%d)", int(m))
}

// ParseModality converts a modality code (case-insensitive) into a Modality.
func ParseModality(s string) (Modality, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range modalityNames {
		if m != ModalityUnknown && name == code {
			return m, nil
		}
	}
	return ModalityUnknown, fmt.Errorf("unknown modality %q", s)
}

// StudyInfo is the plain study metadata handed to an engine.
type StudyInfo struct {
	// ID uniquely identifies the study
	ID uuid.UUID

	// PatientID is an opaque identifier supplied by the caller
	PatientID string

	// Modality selects the engine
	Modality Modality

	// Description is free text used in progress messages
	Description string
}

// NewStudyInfo creates study metadata with a fresh random ID.
func NewStudyInfo(modality Modality, patientID, description string) StudyInfo {
	return StudyInfo{
		ID:          uuid.New(),
		PatientID:   patientID,
		Modality:    modality,
		Description: description,
	}
}

// String renders a short human-readable label for logs.
func (s StudyInfo) String() string {
	patient := s.PatientID
	if patient == "" {
		patient = "anonymous"
	}
	return fmt.Sprintf("study %s (%s, %s)", s.ID.String()[:8], patient, s.Modality)
}
