package validate

import (
	"errors"
	"math"
)

// ErrNoGeometry is returned when a viewport cannot be turned into a document
// range. Callers fall back to validating the whole document.
var ErrNoGeometry = errors.New("validate: viewport geometry unavailable")

// Viewport is the scroll geometry reported by the host view.
type Viewport struct {
	ScrollTop    float64 `json:"scroll_top"`
	ScrollHeight float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

// ViewportEstimator maps a viewport onto the rune range it most likely shows.
type ViewportEstimator interface {
	Estimate(docLen int, vp Viewport) (Range, error)
}

// RatioEstimator estimates the visible range from scroll ratios, assuming text
// is spread evenly over the content height. The estimate is an approximation:
// tokens near the edges may be included or left out, which Buffer absorbs by
// widening the range on both sides.
type RatioEstimator struct {
	// Buffer widens the range by this fraction of the visible span on each
	// side. 0.5 adds half a screen above and below.
	Buffer float64
}

// Estimate implements [ViewportEstimator].
func (e RatioEstimator) Estimate(docLen int, vp Viewport) (Range, error) {
	if vp.ScrollHeight <= 0 || math.IsNaN(vp.ScrollHeight) {
		return Range{}, ErrNoGeometry
	}
	return EstimateRange(docLen, vp.ScrollTop/vp.ScrollHeight, vp.ClientHeight/vp.ScrollHeight, e.Buffer)
}

// EstimateRange converts scroll ratios to a rune range. scrollRatio is the
// fraction of content scrolled past, visibleRatio the fraction shown, and
// bufferRatio the extra margin as a fraction of the visible span.
func EstimateRange(docLen int, scrollRatio, visibleRatio, bufferRatio float64) (Range, error) {
	for _, v := range []float64{scrollRatio, visibleRatio, bufferRatio} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Range{}, ErrNoGeometry
		}
	}
	if scrollRatio < 0 || scrollRatio > 1 || visibleRatio <= 0 || bufferRatio < 0 {
		return Range{}, ErrNoGeometry
	}
	if docLen <= 0 || visibleRatio >= 1 {
		return Range{Start: 0, End: max(docLen, 0)}, nil
	}
	margin := visibleRatio * bufferRatio
	from := math.Floor((scrollRatio - margin) * float64(docLen))
	to := math.Ceil((scrollRatio + visibleRatio + margin) * float64(docLen))
	return Range{
		Start: int(math.Max(from, 0)),
		End:   int(math.Min(to, float64(docLen))),
	}, nil
}
