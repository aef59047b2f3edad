// Package report turns stored metric series into plots and picks the best
// run of a set.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/subspaceopt/internal/store"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Curve is one line of a plot. X may be nil, in which case the iteration
// index is used. A curve with a single value is drawn as a horizontal
// reference line across the plot.
type Curve struct {
	Name string
	X    []float64
	Y    []float64
}

// Options controls PlotSeries.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	// Start and End select the index window [Start, End). End <= 0 means
	// the end of each curve.
	Start int
	End   int
	LogX  bool
	LogY  bool
	// Width and Height default to 6x4 inches.
	Width  vg.Length
	Height vg.Length
}

// ErrNoPoints is returned when no curve has a plottable point.
var ErrNoPoints = errors.New("report: nothing to plot")

// PlotSeries draws curves into path. The image format follows the file
// extension (png, svg, pdf, ...). Non-finite points, and non-positive ones
// on a log axis, are left out.
func PlotSeries(path string, curves []Curve, opts Options) error {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = "iteration"
	}
	p.Y.Label.Text = opts.YLabel
	if opts.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if opts.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Legend.Top = true

	span := 0
	for _, c := range curves {
		if len(c.Y) > 1 {
			span = max(span, len(c.Y))
		}
	}

	plotted := 0
	for i, c := range curves {
		pts := points(c, span, opts)
		if len(pts) == 0 {
			slog.Warn("Skipping curve without plottable points", "curve", c.Name)
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("curve %s: %w", c.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(c.Name, line)
		plotted++
	}
	if plotted == 0 {
		return ErrNoPoints
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 6 * vg.Inch
	}
	if height <= 0 {
		height = 4 * vg.Inch
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	slog.Debug("Plot saved", "path", path, "curves", plotted)
	return nil
}

// points returns the windowed, filtered points of c. A single-value curve
// is expanded to span points.
func points(c Curve, span int, opts Options) plotter.XYs {
	y := c.Y
	x := c.X
	if len(y) == 1 && span > 1 {
		y = make([]float64, span)
		for i := range y {
			y[i] = c.Y[0]
		}
		x = nil
	}

	start, end := window(len(y), opts.Start, opts.End)
	pts := make(plotter.XYs, 0, end-start)
	for i := start; i < end; i++ {
		px := float64(i)
		if x != nil {
			if i >= len(x) {
				break
			}
			px = x[i]
		}
		py := y[i]
		if !finite(px) || !finite(py) {
			continue
		}
		if (opts.LogX && px <= 0) || (opts.LogY && py <= 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: px, Y: py})
	}
	return pts
}

func window(n, start, end int) (int, int) {
	if end <= 0 || end > n {
		end = n
	}
	start = max(start, 0)
	if start > end {
		start = end
	}
	return start, end
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoadCurves reads the series named y of each run from fs. When x is not
// empty the series named x supplies the horizontal axis, e.g.
// store.SeriesTime for value-over-time plots.
func LoadCurves(fs *store.FSStore, runIDs []string, suffix, y, x string) ([]Curve, error) {
	curves := make([]Curve, 0, len(runIDs))
	for _, id := range runIDs {
		ys, err := fs.LoadSeries(id, suffix, y)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		c := Curve{Name: id, Y: ys}
		if x != "" {
			if c.X, err = fs.LoadSeries(id, suffix, x); err != nil {
				return nil, fmt.Errorf("run %s: %w", id, err)
			}
		}
		curves = append(curves, c)
	}
	return curves, nil
}
