package main

import (
	"fmt"
	"strconv"

	"github.com/milosgajdos/go-autompc/eval"
	"github.com/milosgajdos/go-autompc/graph"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

func runSysID(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sys, err := cartpoleSystem()
	if err != nil {
		return err
	}

	_, trajs, err := generate(sys, cfg)
	if err != nil {
		return err
	}
	log.Info("generated trajectories", "count", len(trajs), "steps", cfg.Data.Steps)

	f, mcfg, err := cfg.Model.Factory(sys)
	if err != nil {
		return err
	}
	log.Debug("model configuration", "model", cfg.Model.Kind, "params", mcfg.Values())

	h, err := eval.NewHoldout(sys, trajs, eval.RMSEKStep{K: cfg.Eval.KStep}, cfg.Eval.Holdout, cfg.Seed)
	if err != nil {
		return err
	}
	h.AddGrapher(graph.KStep{KMax: cfg.Eval.KStep})

	res, err := h.Run(f, mcfg)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	log.Info("evaluated model", "run", res.ID, "score", res.Score)

	fmt.Fprintln(cmd.OutOrStdout(), summary("system identification", [][2]string{
		{"run", res.ID.String()},
		{"model", cfg.Model.Kind},
		{"state dim", strconv.Itoa(res.Model.StateDim())},
		{"train/holdout", fmt.Sprintf("%d/%d", len(h.Training()), len(h.Holdout()))},
		{"rmse", fmt.Sprintf("%.6f (k=%d)", res.Score, cfg.Eval.KStep)},
	}))

	if plotFile != "" {
		if err := res.Graphs[0].Save(8*vg.Inch, 6*vg.Inch, plotFile); err != nil {
			return fmt.Errorf("failed to save plot to %s: %w", plotFile, err)
		}
		log.Info("saved plot", "file", plotFile)
	}

	return nil
}
