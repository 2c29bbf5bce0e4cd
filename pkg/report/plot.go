package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"vesselscan/pkg/pseudocolor"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("report: no data to plot")

// HistogramBins is the number of bins used by PlotHistogram.
const HistogramBins = 50

// PlotHistogram writes a histogram of vesselness scores to path. The image
// format follows the file extension (png, svg, pdf).
func PlotHistogram(scores []float64, title, path string) error {
	if len(scores) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Vesselness"
	p.Y.Label.Text = "Voxels"

	hist, err := plotter.NewHist(plotter.Values(scores), HistogramBins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	hist.FillColor = pseudocolor.Blood.Color()
	p.Add(hist)

	return save(p, path)
}

// PlotLabelVolumes writes a bar chart of the physical volume of each tissue
// label in s to path.
func PlotLabelVolumes(s Summary, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Volume (cm³)"

	for i, l := range pseudocolor.Labels() {
		bars, err := plotter.NewBarChart(plotter.Values{s.LabelVolumeCM3[l]}, vg.Points(30))
		if err != nil {
			return fmt.Errorf("build bar chart: %w", err)
		}
		bars.Color = l.Color()
		bars.Offset = vg.Points(float64(i) * 32)
		bars.LineStyle.Width = vg.Points(0.5)
		p.Add(bars)
		p.Legend.Add(l.String(), bars)
	}
	p.Legend.Top = true
	p.X.Tick.Marker = plot.ConstantTicks(nil)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
