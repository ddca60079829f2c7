// Package overlay converts bubble bounding boxes on the 0-1000 scale
// into percentage-of-container regions and sizes translated text to fit
// inside them.
package overlay

import (
	"math"
	"strings"
)

const (
	// Font size search bounds, in display units.
	maxFontSize     = 30
	minInitialSize  = 10
	floorFontSize   = 8
	initialSizeDiv  = 3.0
	lineHeightRatio = 1.2

	// LowConfidenceThreshold marks translations that get a warning
	// indicator in the UI.
	LowConfidenceThreshold = 50
)

// Region is an absolutely positioned rectangle expressed in percent of
// the rendered image container, so the overlay tracks the image as its
// container resizes.
type Region struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout maps a [ymin, xmin, ymax, xmax] box on the 0-1000 scale to a
// percent region.
func Layout(box [4]int) Region {
	ymin, xmin, ymax, xmax := box[0], box[1], box[2], box[3]
	return Region{
		Top:    float64(ymin) / 10,
		Left:   float64(xmin) / 10,
		Height: float64(ymax-ymin) / 10,
		Width:  float64(xmax-xmin) / 10,
	}
}

// Valid reports whether a box satisfies the coordinate invariants:
// ymin <= ymax, xmin <= xmax, all values in [0, 1000].
func Valid(box [4]int) bool {
	for _, v := range box {
		if v < 0 || v > 1000 {
			return false
		}
	}
	return box[0] <= box[2] && box[1] <= box[3]
}

// TextMeasurer reports the rendered extent of text at a font size,
// wrapped to maxWidth. The web layer supplies real DOM metrics; the
// server uses Approximate for suggested sizes.
type TextMeasurer interface {
	Measure(text string, fontSize int, maxWidth float64) (width, height float64)
}

// FitText picks the largest font size that keeps text inside a boxW x
// boxH container. The initial candidate is proportional to box height,
// clamped to [10, 30]; it shrinks one unit at a time while the measured
// extent overflows, stopping at a floor of 8 regardless of remaining
// overflow. Termination is bounded by initial-8 steps.
func FitText(text string, boxW, boxH float64, m TextMeasurer) int {
	size := initialSize(boxH)
	for size > floorFontSize {
		w, h := m.Measure(text, size, boxW)
		if w <= boxW && h <= boxH {
			break
		}
		size--
	}
	return size
}

func initialSize(boxH float64) int {
	size := int(math.Round(boxH / initialSizeDiv))
	if size < minInitialSize {
		size = minInitialSize
	}
	if size > maxFontSize {
		size = maxFontSize
	}
	return size
}

// LowConfidence reports whether a confidence score warrants the
// warning indicator. Absent scores are trusted.
func LowConfidence(confidence *int) bool {
	return confidence != nil && *confidence < LowConfidenceThreshold
}

// Approximate is a glyph-advance text measurer used when no real
// rendering metrics are available. It wraps greedily on spaces.
type Approximate struct{}

// advanceRatio approximates average glyph advance as a fraction of the
// font size for the comic typeface.
const advanceRatio = 0.55

// Measure returns the wrapped extent of text at fontSize.
func (Approximate) Measure(text string, fontSize int, maxWidth float64) (float64, float64) {
	if text == "" {
		return 0, 0
	}

	glyph := float64(fontSize) * advanceRatio
	lineHeight := float64(fontSize) * lineHeightRatio
	space := glyph

	var lines int
	var widest, lineWidth float64
	for _, word := range strings.Fields(text) {
		wordWidth := float64(len([]rune(word))) * glyph
		switch {
		case lineWidth == 0:
			lines++
			lineWidth = wordWidth
		case lineWidth+space+wordWidth <= maxWidth:
			lineWidth += space + wordWidth
		default:
			lines++
			lineWidth = wordWidth
		}
		if lineWidth > widest {
			widest = lineWidth
		}
	}
	if lines == 0 {
		lines = 1
	}
	return widest, float64(lines) * lineHeight
}

var _ TextMeasurer = Approximate{}
