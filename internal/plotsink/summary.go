package plotsink

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary reports distributional statistics over a sweep's accumulated
// Y values, the same percentiles the teacher computes over per-track
// speed samples before writing an aggregate row.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P85    float64 `json:"p85"`
	P98    float64 `json:"p98"`
}

// Summarize computes a Summary over ys. It returns the zero Summary for
// an empty input rather than erroring — an empty sweep has no
// statistics to report, not a failure.
func Summarize(ys []float64) Summary {
	if len(ys) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), ys...)
	sort.Float64s(sorted)

	return Summary{
		Mean:   stat.Mean(ys, nil),
		StdDev: stat.StdDev(ys, nil),
		P50:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P85:    stat.Quantile(0.85, stat.Empirical, sorted, nil),
		P98:    stat.Quantile(0.98, stat.Empirical, sorted, nil),
	}
}

// Summary computes a Summary over the Y values of a LiveHandler's
// currently retained bins, skipping break markers.
func (h *LiveHandler) Summary() Summary {
	ys := make([]float64, 0, len(h.recent))
	for _, b := range h.recent {
		if !b.Break {
			ys = append(ys, b.Y)
		}
	}
	return Summarize(ys)
}
