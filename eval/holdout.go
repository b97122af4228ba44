package eval

import (
	"fmt"

	"github.com/google/uuid"
	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"golang.org/x/exp/rand"
	"gonum.org/v1/plot"
)

// Grapher plots evaluation of a trained model on holdout trajectories.
type Grapher interface {
	Graph(m mpc.Model, trajs []*mpc.Trajectory) (*plot.Plot, error)
}

// Result is a result of model evaluation.
type Result struct {
	// ID identifies evaluation run
	ID uuid.UUID
	// Score is the metric score on holdout trajectories
	Score float64
	// Model is the trained model
	Model mpc.Model
	// Graphs are plots produced by evaluation graphers
	Graphs []*plot.Plot
}

// Holdout evaluates models trained on a random subset of trajectories
// on the remaining holdout trajectories.
type Holdout struct {
	sys      *mpc.System
	train    []*mpc.Trajectory
	holdout  []*mpc.Trajectory
	metric   Metric
	graphers []Grapher
}

// NewHoldout creates new Holdout evaluator which holds out prop fraction of trajs.
// Trajectories are shuffled with a random source seeded with seed.
// It returns error if prop is not in (0, 1) or either subset would be empty.
func NewHoldout(sys *mpc.System, trajs []*mpc.Trajectory, metric Metric, prop float64, seed uint64) (*Holdout, error) {
	if sys == nil || metric == nil {
		return nil, fmt.Errorf("invalid holdout arguments: system %v, metric %v", sys, metric)
	}

	if prop <= 0 || prop >= 1 {
		return nil, fmt.Errorf("invalid holdout proportion: %v", prop)
	}

	n := int(prop * float64(len(trajs)))
	if n < 1 || n >= len(trajs) {
		return nil, fmt.Errorf("%w: can not hold out %d of %d trajectories", mpc.ErrTraining, n, len(trajs))
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(trajs))

	h := &Holdout{sys: sys, metric: metric}
	for i, p := range perm {
		if i < n {
			h.holdout = append(h.holdout, trajs[p])
			continue
		}
		h.train = append(h.train, trajs[p])
	}

	return h, nil
}

// AddGrapher adds grapher g to evaluation.
func (h *Holdout) AddGrapher(g Grapher) {
	h.graphers = append(h.graphers, g)
}

// Training returns training trajectories.
func (h *Holdout) Training() []*mpc.Trajectory { return h.train }

// Holdout returns holdout trajectories.
func (h *Holdout) Holdout() []*mpc.Trajectory { return h.holdout }

// Run makes a model with factory f and configuration cfg, trains it on
// training trajectories and scores it on holdout trajectories.
func (h *Holdout) Run(f mpc.ModelFactory, cfg *config.Configuration) (*Result, error) {
	m, err := mpc.MakeModel(h.sys, f, cfg)
	if err != nil {
		return nil, err
	}

	if err := m.Train(h.train); err != nil {
		return nil, err
	}

	score, err := h.metric.Score(m, h.holdout)
	if err != nil {
		return nil, err
	}

	graphs := make([]*plot.Plot, 0, len(h.graphers))
	for _, g := range h.graphers {
		p, err := g.Graph(m, h.holdout)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, p)
	}

	return &Result{
		ID:     uuid.New(),
		Score:  score,
		Model:  m,
		Graphs: graphs,
	}, nil
}
