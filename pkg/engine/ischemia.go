package engine

import (
	"vesselscan/internal/models"
)

// IschemiaEngine analyzes brain CT. Its finer scales target the smaller
// cerebral vessels.
type IschemiaEngine struct {
	*base
}

// Domain describes the cerebral tissue searched by the engine.
func (e *IschemiaEngine) Domain() DomainInfo {
	return DomainInfo{
		Name:        "Cerebral Parenchyma",
		Description: "Brain parenchyma including gray matter, white matter and CSF spaces. Skull and extracranial structures excluded.",
		Structures: []string{
			"gray_matter",
			"white_matter",
			"ventricles",
			"basal_ganglia",
			"cerebellum",
			"brainstem",
		},
		HURange: &HURange{Min: 0, Max: 100},
	}
}

// Analyze computes vesselness and tissue labels for a brain CT study.
func (e *IschemiaEngine) Analyze(study models.StudyInfo, in Input) (*Result, error) {
	res, err := e.analyze(study, in, e.Domain())
	if err != nil {
		return nil, err
	}

	d := e.Domain()
	inside := 0
	for _, idx := range res.Response.Indices {
		v := in.Volume.Data[idx]
		if v >= d.HURange.Min && v <= d.HURange.Max {
			inside++
		}
	}
	if n := res.Response.Len(); n > 0 {
		e.logf("[%s] %.1f%% of masked voxels fall in the parenchyma window [%.0f, %.0f] HU",
			e.modality, 100*float64(inside)/float64(n), d.HURange.Min, d.HURange.Max)
	}
	return res, nil
}
