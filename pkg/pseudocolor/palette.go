package pseudocolor

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// palette holds the display color of each label.
var palette = [NumLabels]colorful.Color{
	mustHex("#000000"), // unclassified
	mustHex("#1f3b73"), // air
	mustHex("#c8a27a"), // soft tissue
	mustHex("#ffb000"), // thrombus
	mustHex("#d7263d"), // blood
	mustHex("#f2f2f2"), // bone
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("pseudocolor: bad palette entry %q: %v", s, err))
	}
	return c
}

// Color returns the display color of the label.
func (l Label) Color() colorful.Color {
	if int(l) >= NumLabels {
		return palette[Unclassified]
	}
	return palette[l]
}

// RGB returns the display color as 8-bit channels.
func (l Label) RGB() (r, g, b uint8) {
	return l.Color().RGB255()
}

// Overlay blends the label color over a grayscale intensity in [0, 1] in
// CIE L*a*b* space. alpha is the label opacity in [0, 1]. Unclassified
// voxels show the grayscale value only.
func Overlay(gray float64, l Label, alpha float64) colorful.Color {
	base := colorful.Color{R: gray, G: gray, B: gray}.Clamped()
	if l == Unclassified || int(l) >= NumLabels {
		return base
	}
	return base.BlendLab(l.Color(), alpha).Clamped()
}
