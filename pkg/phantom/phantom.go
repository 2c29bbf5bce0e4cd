// Package phantom builds synthetic CT volumes with known geometry for
// testing and demonstrating the vesselness filter.
package phantom

import (
	"vesselscan/internal/models"
)

// Typical Hounsfield Unit values used by the synthetic phantoms.
const (
	LungHU   = -800.0
	VesselHU = 200.0
	RibHU    = 700.0
)

// Cylinder is a solid tube running along the full Z axis.
type Cylinder struct {
	CenterY, CenterX float64
	Radius           float64
	HU               float64
}

// Plate is a slab spanning the full Z axis. X bounds are inclusive and Y
// bounds are exclusive.
type Plate struct {
	XMin, XMax int
	YMin, YMax int
	HU         float64
}

// Sphere is a solid ball.
type Sphere struct {
	CenterZ, CenterY, CenterX float64
	Radius                    float64
	HU                        float64
}

// Background returns a volume of the given shape filled with hu.
func Background(shape models.Shape, hu float64) *models.Volume {
	return models.NewVolumeFilled(shape[0], shape[1], shape[2], hu)
}

// AddCylinder paints c into vol.
func AddCylinder(vol *models.Volume, c Cylinder) {
	r2 := c.Radius * c.Radius
	for y := 0; y < vol.Height; y++ {
		dy := float64(y) - c.CenterY
		for x := 0; x < vol.Width; x++ {
			dx := float64(x) - c.CenterX
			if dx*dx+dy*dy > r2 {
				continue
			}
			for z := 0; z < vol.Depth; z++ {
				vol.Set(z, y, x, c.HU)
			}
		}
	}
}

// AddPlate paints p into vol.
func AddPlate(vol *models.Volume, p Plate) {
	for y := p.YMin + 1; y < p.YMax; y++ {
		if y < 0 || y >= vol.Height {
			continue
		}
		for x := p.XMin; x <= p.XMax; x++ {
			if x < 0 || x >= vol.Width {
				continue
			}
			for z := 0; z < vol.Depth; z++ {
				vol.Set(z, y, x, p.HU)
			}
		}
	}
}

// AddSphere paints s into vol.
func AddSphere(vol *models.Volume, s Sphere) {
	r2 := s.Radius * s.Radius
	for z := 0; z < vol.Depth; z++ {
		dz := float64(z) - s.CenterZ
		for y := 0; y < vol.Height; y++ {
			dy := float64(y) - s.CenterY
			for x := 0; x < vol.Width; x++ {
				dx := float64(x) - s.CenterX
				if dx*dx+dy*dy+dz*dz <= r2 {
					vol.Set(z, y, x, s.HU)
				}
			}
		}
	}
}

// VesselAndRib returns the standard 50x50x50 discrimination phantom: lung
// background, a vessel of radius 4 along Z at (y=25, x=15) and a rib-like
// sheet at x in [33, 37], y in (10, 40).
func VesselAndRib() *models.Volume {
	vol := Background(models.Shape{50, 50, 50}, LungHU)
	AddCylinder(vol, VesselCylinder())
	AddPlate(vol, RibPlate())
	return vol
}

// VesselCylinder is the vessel of VesselAndRib.
func VesselCylinder() Cylinder {
	return Cylinder{CenterY: 25, CenterX: 15, Radius: 4, HU: VesselHU}
}

// RibPlate is the sheet of VesselAndRib.
func RibPlate() Plate {
	return Plate{XMin: 33, XMax: 37, YMin: 10, YMax: 40, HU: RibHU}
}

// Names lists the phantoms available through Build.
func Names() []string {
	return []string{"vessel-rib", "vessel", "plate", "sphere"}
}

// Build returns the named phantom and true, or nil and false for an unknown
// name.
func Build(name string) (*models.Volume, bool) {
	shape := models.Shape{50, 50, 50}
	switch name {
	case "vessel-rib":
		return VesselAndRib(), true
	case "vessel":
		vol := Background(shape, LungHU)
		AddCylinder(vol, VesselCylinder())
		return vol, true
	case "plate":
		vol := Background(shape, LungHU)
		AddPlate(vol, RibPlate())
		return vol, true
	case "sphere":
		vol := Background(shape, LungHU)
		AddSphere(vol, Sphere{CenterZ: 25, CenterY: 25, CenterX: 25, Radius: 6, HU: VesselHU})
		return vol, true
	default:
		return nil, false
	}
}
