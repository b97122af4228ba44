package main

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/noise"
	"github.com/milosgajdos/go-autompc/sim"
	"gonum.org/v1/gonum/mat"
)

func cartpoleSystem() (*mpc.System, error) {
	return mpc.NewSystem([]string{"theta", "omega", "x", "dx"}, []string{"u"})
}

// processNoise returns Gaussian noise with standard deviation std or Zero noise if std is zero.
func processNoise(dim int, std float64, seed uint64) (noise.Noise, error) {
	if std < 0 {
		return nil, fmt.Errorf("invalid process noise: %v", std)
	}

	if std == 0 {
		z, err := noise.NewZero(dim)
		if err != nil {
			return nil, err
		}
		return z, nil
	}

	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, std*std)
	}

	g, err := noise.NewGaussian(make([]float64, dim), cov, seed)
	if err != nil {
		return nil, err
	}

	return g, nil
}

// generate returns cartpole plant and trajectories driven by uniformly random force.
// Training trajectories are perturbed by process noise, the returned plant is not.
func generate(sys *mpc.System, cfg *RunConfig) (sim.Plant, []*mpc.Trajectory, error) {
	if cfg.Data.Trajs < 1 || cfg.Data.Steps < 2 {
		return nil, nil, fmt.Errorf("invalid data config: %d trajectories of %d steps", cfg.Data.Trajs, cfg.Data.Steps)
	}

	plant, err := sim.NewCartpole(sim.DefaultCartpole(), cfg.Dt)
	if err != nil {
		return nil, nil, err
	}

	pn, err := processNoise(sys.ObsDim(), cfg.Data.Noise, cfg.Seed+2)
	if err != nil {
		return nil, nil, err
	}

	noisy, err := sim.WithNoise(plant, pn)
	if err != nil {
		return nil, nil, err
	}

	force, err := noise.NewUniform([]float64{-cfg.Data.UMax}, []float64{cfg.Data.UMax}, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	tilt, err := noise.NewUniform([]float64{-cfg.Data.Theta0}, []float64{cfg.Data.Theta0}, cfg.Seed+1)
	if err != nil {
		return nil, nil, err
	}

	trajs := make([]*mpc.Trajectory, 0, cfg.Data.Trajs)
	for i := 0; i < cfg.Data.Trajs; i++ {
		x0 := mat.NewVecDense(4, []float64{tilt.Sample().AtVec(0), 0, 0, 0})
		traj, err := sim.Generate(sys, noisy, x0, sim.Excite(force), cfg.Data.Steps-1)
		if err != nil {
			return nil, nil, fmt.Errorf("trajectory %d: %w", i, err)
		}
		trajs = append(trajs, traj)
	}

	return plant, trajs, nil
}
