package visualization

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"vesselscan/internal/models"
	"vesselscan/pkg/pseudocolor"
)

// zGradientVolume gives every Z slice a unique value in [0, 1)
func zGradientVolume(width, height, depth int) *models.Volume {
	vol := models.NewVolume(depth, height, width)
	for z := 0; z < depth; z++ {
		value := float64(z) / float64(depth)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(z, y, x, value)
			}
		}
	}
	return vol
}

// TestHUWindow verifies the center/width window conversion
func TestHUWindow(t *testing.T) {
	w := HUWindow(40, 80)
	if w.Min != 0 || w.Max != 80 {
		t.Errorf("Expected window [0, 80], got [%v, %v]", w.Min, w.Max)
	}
	if got := w.normalize(-50); got != 0 {
		t.Errorf("Expected values below the window to clamp to 0, got %v", got)
	}
	if got := w.normalize(20); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Expected 0.25, got %v", got)
	}
	if got := w.normalize(math.NaN()); got != 0 {
		t.Errorf("Expected NaN to map to 0, got %v", got)
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	vol := zGradientVolume(width, height, depth)
	viewer := NewViewer(vol, models.Spacing{1, 1, 1})

	// Test extracting Z slices
	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		gray16Img, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}

		expectedValue := uint16(float64(z) / float64(depth) * 65535)
		centerValue := gray16Img.Gray16At(width/2, height/2).Y
		if math.Abs(float64(centerValue)-float64(expectedValue)) > 1.0 {
			t.Errorf("Expected Z slice value ~%d at center, got %d", expectedValue, centerValue)
		}
	}

	// Test extracting X slice: columns run along Z
	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	boundsX := imgX.Bounds()
	if boundsX.Dx() != depth || boundsX.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d",
			depth, height, boundsX.Dx(), boundsX.Dy())
	}
	if got := imgX.(*image.Gray16).Gray16At(depth-1, 0).Y; got != uint16(float64(depth-1)/float64(depth)*65535) {
		t.Errorf("X slice column %d should show the last Z slice, got %d", depth-1, got)
	}

	// Test extracting Y slice: rows run along Z
	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	boundsY := imgY.Bounds()
	if boundsY.Dx() != width || boundsY.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d",
			width, depth, boundsY.Dx(), boundsY.Dy())
	}

	// Test invalid axis
	if _, err = viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	// Test out of bounds position
	if _, err = viewer.ExtractSlice("z", depth+1); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err = viewer.ExtractSlice("y", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractSliceWithLabels verifies the pseudocolor overlay
func TestExtractSliceWithLabels(t *testing.T) {
	vol := models.NewVolume(1, 1, 3)
	copy(vol.Data, []float64{-800, 120, 300})
	labels, err := pseudocolor.Classify(vol)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	viewer := NewViewer(vol, models.Spacing{1, 1, 1})
	viewer.SetWindow(LungWindow)
	if err := viewer.SetLabels(labels, 1); err != nil {
		t.Fatalf("SetLabels failed: %v", err)
	}

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	rgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("Expected *image.NRGBA, got %T", img)
	}

	// full opacity shows the label color
	r, g, b := pseudocolor.Blood.RGB()
	got := rgba.NRGBAAt(2, 0)
	if absDiff(got.R, r) > 1 || absDiff(got.G, g) > 1 || absDiff(got.B, b) > 1 {
		t.Errorf("Expected blood color (%d,%d,%d), got (%d,%d,%d)", r, g, b, got.R, got.G, got.B)
	}

	// unclassified voxels stay gray
	gap := rgba.NRGBAAt(1, 0)
	if gap.R != gap.G || gap.G != gap.B {
		t.Errorf("Expected gray pixel for unclassified voxel, got %v", gap)
	}

	wrong := models.NewLabelVolume(2, 1, 3)
	if err := viewer.SetLabels(wrong, 0.5); err == nil {
		t.Error("Expected error for mismatched label shape, got nil")
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol := models.NewVolume(depth, height, width)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(z, y, x, float64(x)/float64(width)+
					float64(y)/float64(height)+
					float64(z)/float64(depth))
			}
		}
	}
	viewer := NewViewer(vol, models.Spacing{1, 1, 1})

	start := models.Shape{1, 3, 2}
	size := models.Shape{2, 3, 4}
	region, err := viewer.ExtractRegion(start, size)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if region.Shape() != size {
		t.Errorf("Expected region shape %s, got %s", size, region.Shape())
	}

	for z := 0; z < size[0]; z++ {
		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[2]; x++ {
				want := vol.At(start[0]+z, start[1]+y, start[2]+x)
				if got := region.At(z, y, x); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", z, y, x, want, got)
				}
			}
		}
	}

	// Test invalid parameters
	if _, err = viewer.ExtractRegion(models.Shape{0, 0, -1}, models.Shape{1, 1, 1}); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err = viewer.ExtractRegion(models.Shape{}, models.Shape{1, 0, 1}); err == nil {
		t.Error("Expected error for zero size, got nil")
	}
	if _, err = viewer.ExtractRegion(models.Shape{0, 0, width - 1}, models.Shape{1, 1, 2}); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestAspectCorrected verifies resampling of thick-slice planes
func TestAspectCorrected(t *testing.T) {
	vol := zGradientVolume(8, 6, 4)
	viewer := NewViewer(vol, models.Spacing{2.5, 0.5, 0.5})

	img, err := viewer.ExtractSlice("y", 3)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	resampled, err := viewer.AspectCorrected(img, "y")
	if err != nil {
		t.Fatalf("AspectCorrected failed: %v", err)
	}
	if b := resampled.Bounds(); b.Dx() != 8 || b.Dy() != 20 {
		t.Errorf("Expected 8x20 after resampling, got %dx%d", b.Dx(), b.Dy())
	}

	axial, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	same, err := viewer.AspectCorrected(axial, "z")
	if err != nil {
		t.Fatalf("AspectCorrected failed: %v", err)
	}
	if same != axial {
		t.Error("Expected isotropic plane to be returned unchanged")
	}
}

// TestSaveSlice verifies that slices can be saved to disk
func TestSaveSlice(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	vol := models.NewVolumeFilled(5, 10, 10, 0.5)
	viewer := NewViewer(vol, models.Spacing{1, 1, 1})

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"test_slice.png", "test_slice.jpg"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save slice: %v", err)
		}
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Saved file does not exist: %s", filename)
		}
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	width, height, depth := 5, 5, 3
	vol := models.NewVolumeFilled(depth, height, width, 0.5)
	viewer := NewViewer(vol, models.Spacing{2, 1, 1})
	viewer.SetAspectCorrection(true)

	outputDir := filepath.Join(tempDir, "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("x", outputDir); err != nil {
		t.Fatalf("Failed to save X slice sequence: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "slice_x_004.png")); os.IsNotExist(err) {
		t.Error("Expected last X slice to be saved")
	}

	// Test invalid axis
	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
