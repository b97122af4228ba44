package main

import (
	"fmt"
	"os"
	"sort"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"github.com/milosgajdos/go-autompc/sysid/arx"
	"github.com/milosgajdos/go-autompc/sysid/koopman"
	"github.com/milosgajdos/go-autompc/sysid/linear"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt      = 0.01
	DefaultTrajs   = 100
	DefaultSteps   = 400
	DefaultUMax    = 2.0
	DefaultTheta0  = 0.02
	DefaultHoldout = 0.25
	DefaultKStep   = 50
	DefaultHorizon = 200
)

// RunConfig configures data generation, model training and control.
type RunConfig struct {
	Dt      float64          `yaml:"dt"`
	Seed    uint64           `yaml:"seed"`
	Data    DataConfig       `yaml:"data"`
	Model   ModelConfig      `yaml:"model"`
	Eval    EvalConfig       `yaml:"eval"`
	Control ControllerConfig `yaml:"control"`
}

// DataConfig configures generation of training trajectories.
type DataConfig struct {
	Trajs  int     `yaml:"trajs"`
	Steps  int     `yaml:"steps"`
	UMax   float64 `yaml:"umax"`
	Theta0 float64 `yaml:"theta0"`
	// Noise is standard deviation of process noise added to every training step
	Noise float64 `yaml:"noise"`
}

// ModelConfig selects a model and its hyperparameters.
type ModelConfig struct {
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// EvalConfig configures holdout evaluation.
type EvalConfig struct {
	Holdout float64 `yaml:"holdout"`
	KStep   int     `yaml:"kstep"`
}

// ControllerConfig configures LQR and the closed loop simulation.
type ControllerConfig struct {
	Horizon int       `yaml:"horizon"`
	Steps   int       `yaml:"steps"`
	Q       []float64 `yaml:"q"`
	R       []float64 `yaml:"r"`
	Init    []float64 `yaml:"init"`
	Field   string    `yaml:"field"`
}

// DefaultConfig returns default run configuration.
func DefaultConfig() *RunConfig {
	return &RunConfig{
		Dt:   DefaultDt,
		Seed: 49,
		Data: DataConfig{
			Trajs:  DefaultTrajs,
			Steps:  DefaultSteps,
			UMax:   DefaultUMax,
			Theta0: DefaultTheta0,
		},
		Model: ModelConfig{
			Kind:   "koopman",
			Params: map[string]any{"trig_basis": "true", "method": "lstsq"},
		},
		Eval: EvalConfig{
			Holdout: DefaultHoldout,
			KStep:   DefaultKStep,
		},
		Control: ControllerConfig{
			Horizon: DefaultHorizon,
			Steps:   DefaultHorizon,
			Q:       []float64{1.0, 10.0, 10.0, 10.0},
			R:       []float64{0.001},
			Init:    []float64{0.1, 0.0, 0.0, 0.0},
			Field:   "theta",
		},
	}
}

// LoadConfig reads YAML run configuration from path.
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*RunConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// default params belong to the default model only
	params := cfg.Model.Params
	cfg.Model.Params = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Model.Params == nil && cfg.Model.Kind == DefaultConfig().Model.Kind {
		cfg.Model.Params = params
	}

	return cfg, nil
}

var factories = map[string]mpc.ModelFactory{
	"linear":  linear.Factory{},
	"arx":     arx.Factory{},
	"koopman": koopman.Factory{},
}

// Factory returns model factory and its configuration.
func (c ModelConfig) Factory(sys *mpc.System) (mpc.ModelFactory, *config.Configuration, error) {
	f, ok := factories[c.Kind]
	if !ok {
		kinds := make([]string, 0, len(factories))
		for k := range factories {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		return nil, nil, fmt.Errorf("unknown model %q, expected one of %v", c.Kind, kinds)
	}

	cfg := f.ConfigSpace(sys).Default()
	for name, v := range c.Params {
		if err := cfg.Set(name, v); err != nil {
			return nil, nil, err
		}
	}

	return f, cfg, nil
}
