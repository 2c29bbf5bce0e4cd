// Package visualization renders slices of score and CT volumes, optionally
// overlaid with pseudocolor tissue labels.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"vesselscan/internal/models"
	"vesselscan/pkg/hessian"
	"vesselscan/pkg/pseudocolor"
)

// Window maps intensities in [Min, Max] onto black..white.
type Window struct {
	Min, Max float64
}

// HUWindow returns the display window with the given center and width, as
// used on radiology workstations.
func HUWindow(center, width float64) Window {
	return Window{Min: center - width/2, Max: center + width/2}
}

// Common display windows.
var (
	ScoreWindow = Window{Min: 0, Max: 1}
	LungWindow  = HUWindow(-600, 1500)
	BrainWindow = HUWindow(40, 80)
)

// normalize maps value into [0, 1].
func (w Window) normalize(value float64) float64 {
	if w.Max <= w.Min || math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(1, (value-w.Min)/(w.Max-w.Min)))
}

// Viewer extracts and saves 2D slices of a volume along the X, Y or Z axis.
type Viewer struct {
	volume  *models.Volume
	spacing models.Spacing
	window  Window

	// labels, when set, are blended over the grayscale slice
	labels *models.LabelVolume
	alpha  float64

	// correctAspect resamples saved slices to square physical pixels
	correctAspect bool
}

// NewViewer creates a viewer for vol. Intensities are displayed through
// ScoreWindow until SetWindow is called.
func NewViewer(vol *models.Volume, spacing models.Spacing) *Viewer {
	return &Viewer{
		volume:  vol,
		spacing: spacing,
		window:  ScoreWindow,
	}
}

// SetWindow changes the display window.
func (v *Viewer) SetWindow(w Window) {
	v.window = w
}

// SetLabels overlays labels with the given opacity on every extracted slice.
func (v *Viewer) SetLabels(labels *models.LabelVolume, alpha float64) error {
	if labels != nil && labels.Shape() != v.volume.Shape() {
		return fmt.Errorf("labels %s vs volume %s: %w", labels.Shape(), v.volume.Shape(), hessian.ErrShapeMismatch)
	}
	v.labels = labels
	v.alpha = math.Max(0, math.Min(1, alpha))
	return nil
}

// SetAspectCorrection enables resampling of saved slices so that one pixel
// covers the same physical distance on both image axes.
func (v *Viewer) SetAspectCorrection(on bool) {
	v.correctAspect = on
}

// plane describes how image pixels map to volume voxels for one axis.
type plane struct {
	width, height int
	voxel         func(col, row int) (z, y, x int)

	// physical size of one pixel along the image axes (mm)
	colSpacing, rowSpacing float64
}

func (v *Viewer) plane(axis string, position int) (plane, error) {
	if position < 0 {
		return plane{}, fmt.Errorf("position must be non-negative")
	}
	d, h, w := v.volume.Depth, v.volume.Height, v.volume.Width
	sz, sy, sx := v.axisSpacing()

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= w {
			return plane{}, fmt.Errorf("position %d exceeds width %d", position, w)
		}
		return plane{width: d, height: h, colSpacing: sz, rowSpacing: sy,
			voxel: func(col, row int) (int, int, int) { return col, row, position }}, nil
	case "y", "Y":
		// XZ plane
		if position >= h {
			return plane{}, fmt.Errorf("position %d exceeds height %d", position, h)
		}
		return plane{width: w, height: d, colSpacing: sx, rowSpacing: sz,
			voxel: func(col, row int) (int, int, int) { return row, position, col }}, nil
	case "z", "Z":
		// XY plane
		if position >= d {
			return plane{}, fmt.Errorf("position %d exceeds depth %d", position, d)
		}
		return plane{width: w, height: h, colSpacing: sx, rowSpacing: sy,
			voxel: func(col, row int) (int, int, int) { return position, row, col }}, nil
	default:
		return plane{}, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

func (v *Viewer) axisSpacing() (sz, sy, sx float64) {
	if len(v.spacing) != 3 {
		return 1, 1, 1
	}
	return v.spacing[0], v.spacing[1], v.spacing[2]
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
// Without labels the result is an *image.Gray16; with labels it is an
// *image.NRGBA.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	p, err := v.plane(axis, position)
	if err != nil {
		return nil, err
	}
	shape := v.volume.Shape()
	rect := image.Rect(0, 0, p.width, p.height)

	if v.labels == nil {
		img := image.NewGray16(rect)
		for row := 0; row < p.height; row++ {
			for col := 0; col < p.width; col++ {
				idx := shape.Index(p.voxel(col, row))
				value := uint16(v.window.normalize(v.volume.Data[idx]) * 65535)
				img.SetGray16(col, row, color.Gray16{Y: value})
			}
		}
		return img, nil
	}

	img := image.NewNRGBA(rect)
	for row := 0; row < p.height; row++ {
		for col := 0; col < p.width; col++ {
			idx := shape.Index(p.voxel(col, row))
			gray := v.window.normalize(v.volume.Data[idx])
			c := pseudocolor.Overlay(gray, pseudocolor.Label(v.labels.Data[idx]), v.alpha)
			r, g, b := c.RGB255()
			img.SetNRGBA(col, row, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

// ExtractRegion copies the box starting at start with the given size into a
// new volume.
func (v *Viewer) ExtractRegion(start, size models.Shape) (*models.Volume, error) {
	if start[0] < 0 || start[1] < 0 || start[2] < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	shape := v.volume.Shape()
	for a := 0; a < 3; a++ {
		if start[a]+size[a] > shape[a] {
			return nil, fmt.Errorf("region extends beyond volume boundaries")
		}
	}

	bounds := models.Bounds{
		Min: start,
		Max: models.Shape{start[0] + size[0], start[1] + size[1], start[2] + size[2]},
	}
	return hessian.ExtractRegion(v.volume, bounds), nil
}

// AspectCorrected resamples img, a slice along axis, so that both pixel
// dimensions cover the finer of the two physical spacings.
func (v *Viewer) AspectCorrected(img image.Image, axis string) (image.Image, error) {
	p, err := v.plane(axis, 0)
	if err != nil {
		return nil, err
	}
	if p.colSpacing == p.rowSpacing {
		return img, nil
	}
	unit := math.Min(p.colSpacing, p.rowSpacing)
	b := img.Bounds()
	width := int(math.Round(float64(b.Dx()) * p.colSpacing / unit))
	height := int(math.Round(float64(b.Dy()) * p.rowSpacing / unit))
	return imaging.Resize(img, width, height, imaging.NearestNeighbor), nil
}

// SaveSlice saves an extracted slice. The format follows the file extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
// as PNG files.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		if v.correctAspect {
			if img, err = v.AspectCorrected(img, axis); err != nil {
				return err
			}
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
