package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/guptarohit/asciigraph"
	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/control/lqr"
	"github.com/milosgajdos/go-autompc/graph"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/matrix"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

func diag(name string, vals []float64, n int) (*mat.DiagDense, error) {
	if len(vals) != n {
		return nil, fmt.Errorf("%w: %s needs %d diagonal entries, got %d", mpc.ErrShape, name, n, len(vals))
	}

	return mat.NewDiagDense(n, append([]float64(nil), vals...)), nil
}

func runControl(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sys, err := cartpoleSystem()
	if err != nil {
		return err
	}

	plant, trajs, err := generate(sys, cfg)
	if err != nil {
		return err
	}
	log.Info("generated trajectories", "count", len(trajs), "steps", cfg.Data.Steps)

	f, mcfg, err := cfg.Model.Factory(sys)
	if err != nil {
		return err
	}

	m, err := mpc.MakeModel(sys, f, mcfg)
	if err != nil {
		return err
	}

	if err := m.Train(trajs); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	log.Info("trained model", "model", cfg.Model.Kind, "state_dim", m.StateDim())

	Q, err := diag("Q", cfg.Control.Q, sys.ObsDim())
	if err != nil {
		return err
	}

	R, err := diag("R", cfg.Control.R, sys.CtrlDim())
	if err != nil {
		return err
	}

	task, err := mpc.NewTask(sys)
	if err != nil {
		return err
	}

	if err := task.SetQuadCost(Q, R); err != nil {
		return err
	}

	ccfg := lqr.Factory{}.ConfigSpace(sys, task, m).Default()
	if err := ccfg.Set("horizon", cfg.Control.Horizon); err != nil {
		return err
	}

	c, err := mpc.MakeController(sys, task, m, lqr.Factory{}, ccfg)
	if err != nil {
		return err
	}

	if gains := c.(*lqr.Controller).Gains(); len(gains) > 0 {
		log.Debug("lqr gain", "K0", fmt.Sprintf("%v", matrix.Format(gains[0])))
	}

	start, err := mpc.Zeros(sys, 1)
	if err != nil {
		return err
	}

	if err := start.Step(0).SetObs(cfg.Control.Init); err != nil {
		return err
	}

	traj, err := sim.Simulate(c, plant, start, cfg.Control.Steps)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	cost, err := task.Cost(traj)
	if err != nil {
		return err
	}

	vals, err := traj.ObsField(cfg.Control.Field)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, asciigraph.Plot(vals,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(cfg.Control.Field),
	))

	final := vals[len(vals)-1]
	fmt.Fprintln(out, summary("closed loop", [][2]string{
		{"model", cfg.Model.Kind},
		{"horizon", strconv.Itoa(cfg.Control.Horizon)},
		{"steps", strconv.Itoa(cfg.Control.Steps)},
		{"cost", fmt.Sprintf("%.4f", cost)},
		{"final " + cfg.Control.Field, fmt.Sprintf("%.6f", final)},
		{"max |" + cfg.Control.Field + "|", fmt.Sprintf("%.6f", math.Max(floats.Max(vals), -floats.Min(vals)))},
	}))

	if plotFile != "" {
		p, err := graph.Trajectory(traj)
		if err != nil {
			return err
		}

		if err := p.Save(8*vg.Inch, 6*vg.Inch, plotFile); err != nil {
			return fmt.Errorf("failed to save plot to %s: %w", plotFile, err)
		}
		log.Info("saved plot", "file", plotFile)
	}

	return nil
}
