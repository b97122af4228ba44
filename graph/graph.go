// Package graph plots trajectories and model evaluations.
package graph

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/eval"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Trajectory creates new plot of trajectory fields against step index.
// Fields may name both observations and controls. If no fields are given
// all observations are plotted.
// It returns error if the trajectory is empty or a field is unknown.
func Trajectory(traj *mpc.Trajectory, fields ...string) (*plot.Plot, error) {
	if traj == nil || traj.Len() == 0 {
		return nil, fmt.Errorf("invalid trajectory")
	}

	if len(fields) == 0 {
		fields = traj.System().Observations()
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Value"

	p.Legend.Top = true

	for i, name := range fields {
		vals, err := field(traj, name)
		if err != nil {
			return nil, err
		}

		line, err := plotter.NewLine(makePoints(vals))
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)

		p.Add(line)
		p.Legend.Add(name, line)
	}

	return p, nil
}

func field(traj *mpc.Trajectory, name string) ([]float64, error) {
	if _, ok := traj.System().ObsIndex(name); ok {
		return traj.ObsField(name)
	}

	return traj.CtrlField(name)
}

func makePoints(vals []float64) plotter.XYs {
	pts := make(plotter.XYs, len(vals))
	for i := range vals {
		pts[i].X = float64(i)
		pts[i].Y = vals[i]
	}

	return pts
}

// KStep plots RMSE of open loop prediction against prediction horizon.
// It implements eval.Grapher.
type KStep struct {
	// KMax is the longest prediction horizon
	KMax int
}

// Graph evaluates model m on trajs and plots the k-step RMSE.
func (k KStep) Graph(m mpc.Model, trajs []*mpc.Trajectory) (*plot.Plot, error) {
	rmse, err := eval.RMSEKSteps(m, trajs, k.KMax)
	if err != nil {
		return nil, err
	}

	p := plot.New()

	p.Title.Text = "Prediction error"
	p.X.Label.Text = "Horizon"
	p.Y.Label.Text = "RMSE"

	pts := make(plotter.XYs, len(rmse))
	for i := range rmse {
		pts[i].X = float64(i + 1)
		pts[i].Y = rmse[i]
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	points.Shape = draw.CrossGlyph{}
	points.GlyphStyle.Radius = vg.Points(3)

	p.Add(line, points)
	p.Legend.Add("k-step", line, points)

	return p, nil
}
