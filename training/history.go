package training

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// History records the losses of every epoch.
type History struct {
	TrainLoss  []float64
	ValLoss    []float64
	ValMetrics []Metrics
}

func (h *History) add(trainLoss, valLoss float64, metrics Metrics) {
	h.TrainLoss = append(h.TrainLoss, trainLoss)
	h.ValLoss = append(h.ValLoss, valLoss)
	h.ValMetrics = append(h.ValMetrics, metrics)
}

// Epochs returns the number of completed epochs.
func (h *History) Epochs() int {
	return len(h.TrainLoss)
}

// Plot writes a PNG with the train (blue) and validation (red) loss curves.
func (h *History) Plot(path string) error {
	if h.Epochs() == 0 {
		return fmt.Errorf("no epochs to plot")
	}
	p := plot.New()
	p.Title.Text = "Loss per epoch: train (blue), validation (red)"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "BCE loss"
	p.Add(plotter.NewGrid())

	curves := []struct {
		name   string
		values []float64
		color  color.RGBA
	}{
		{"train", h.TrainLoss, color.RGBA{R: 20, G: 80, B: 200, A: 255}},
		{"validation", h.ValLoss, color.RGBA{R: 200, G: 30, B: 30, A: 255}},
	}
	for _, c := range curves {
		xys := make(plotter.XYs, len(c.values))
		for i, v := range c.values {
			xys[i].X = float64(i + 1)
			xys[i].Y = v
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = c.color
		line.Width = vg.Points(1.2)
		p.Add(line)
		p.Legend.Add(c.name, line)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
