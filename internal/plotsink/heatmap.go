package plotsink

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Heatmap accumulates bins from a two-axis composed sweep into a
// rectangular grid (outer index × inner index) and renders it as a PNG,
// the static-plot analogue of the teacher's GridPlotter ring plots.
type Heatmap struct {
	outerN, innerN int
	grid           []float64 // row-major, outer * innerN + inner
	outerIdx       int
	innerIdx       int
}

// NewHeatmap allocates a Heatmap for an outerN x innerN two-axis sweep.
func NewHeatmap(outerN, innerN int) *Heatmap {
	return &Heatmap{outerN: outerN, innerN: innerN, grid: make([]float64, outerN*innerN)}
}

// Add records one Y value (the sweep's monitored reading) at the
// current grid cell and advances the inner, then outer, cursor — callers
// feed it from the TwoAxis Kind's point stream in traversal order.
func (h *Heatmap) Add(y float64) {
	if h.outerIdx >= h.outerN {
		return
	}
	h.grid[h.outerIdx*h.innerN+h.innerIdx] = y
	h.innerIdx++
	if h.innerIdx >= h.innerN {
		h.innerIdx = 0
		h.outerIdx++
	}
}

// gridXYZ adapts Heatmap to gonum/plot's plotter.GridXYZ.
type gridXYZ struct{ h *Heatmap }

func (g gridXYZ) Dims() (c, r int)   { return g.h.innerN, g.h.outerN }
func (g gridXYZ) Z(c, r int) float64 { return g.h.grid[r*g.h.innerN+c] }
func (g gridXYZ) X(c int) float64    { return float64(c) }
func (g gridXYZ) Y(r int) float64    { return float64(r) }

// Save renders the accumulated grid to path as a PNG heatmap using a
// blue-to-red diverging palette.
func (h *Heatmap) Save(path, title string) error {
	p := plot.New()
	p.Title.Text = title

	pal := moreland.SmoothBlueRed()
	raster := plotter.NewHeatMap(gridXYZ{h}, pal)
	p.Add(raster)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plotsink: save heatmap %s: %w", path, err)
	}
	return nil
}
