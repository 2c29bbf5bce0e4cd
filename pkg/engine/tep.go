package engine

import (
	"vesselscan/internal/models"
)

// TEPEngine analyzes contrast-enhanced CT pulmonary angiography for
// pulmonary embolism. It highlights the pulmonary vascular tree.
type TEPEngine struct {
	*base
}

// Domain describes the thoracic container searched by the engine. It is an
// anatomical region, not a density window.
func (e *TEPEngine) Domain() DomainInfo {
	return DomainInfo{
		Name: "Pulmonary Vascular Tree",
		Description: "Thoracic container holding lung parenchyma, pulmonary arteries and veins " +
			"and the hilar region. Ribs, spine and extrathoracic tissue are excluded upstream.",
		Structures: []string{
			"lung_parenchyma",
			"pulmonary_arteries",
			"pulmonary_veins",
			"hilar_region",
			"bronchial_tree",
			"mediastinum_partial",
		},
	}
}

// Analyze computes vesselness and tissue labels for a CT angiography study.
func (e *TEPEngine) Analyze(study models.StudyInfo, in Input) (*Result, error) {
	if in.Volume != nil && in.Volume.Validate() == nil {
		e.checkContrast(in.Volume)
	}
	return e.analyze(study, in, e.Domain())
}

// Minimum HU span expected from a contrast-enhanced chest CT.
const (
	tepMaxAirHU   = -500.0
	tepMinBloodHU = 200.0
)

// checkContrast logs a warning when the intensity range does not look like
// contrast-enhanced chest CT. The analysis still runs.
func (e *TEPEngine) checkContrast(vol *models.Volume) {
	lo, hi := intensityRange(vol)
	if lo > tepMaxAirHU || hi < tepMinBloodHU {
		e.logf("[%s] warning: HU range [%.0f, %.0f] is unusual for CT angiography", e.modality, lo, hi)
	}
}
