package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/guide"
	"github.com/drozbay/RES4LYF/noise"
	"github.com/drozbay/RES4LYF/plotter"
	"github.com/drozbay/RES4LYF/sampler"
	"github.com/drozbay/RES4LYF/schedule"
	"github.com/drozbay/RES4LYF/selection"
	"github.com/drozbay/RES4LYF/tableau"
	"github.com/drozbay/RES4LYF/telemetry"
	"github.com/drozbay/RES4LYF/tensor"
)

type runConfig struct {
	method    string
	steps     int
	sigmaMin  float64
	sigmaMax  float64
	scheduler string
	rho       float64
	eta       float64
	sNoise    float64
	noiseType string
	seed      int64
	cfg       float64
	c2, c3    float64
	history   int
	denoise   bool
	shape     []int
	dbPath    string
	plotOut   string
}

func addRunFlags(cmd *cobra.Command, rc *runConfig) {
	f := cmd.Flags()
	f.StringVar(&rc.method, "method", "res_2s", "integration method (see `res4lyf list methods`)")
	f.IntVar(&rc.steps, "steps", 25, "number of noise levels")
	f.Float64Var(&rc.sigmaMin, "sigma-min", 0.03, "final positive noise level")
	f.Float64Var(&rc.sigmaMax, "sigma-max", 14.6, "initial noise level")
	f.StringVar(&rc.scheduler, "scheduler", "exponential", "sigma schedule: exponential, karras, linear")
	f.Float64Var(&rc.rho, "rho", 7, "karras rho")
	f.Float64Var(&rc.eta, "eta", 0, "stochastic share per step, 0..1")
	f.Float64Var(&rc.sNoise, "s-noise", 1, "injected noise scale")
	f.StringVar(&rc.noiseType, "noise", "gaussian", "noise generator (see `res4lyf list noise`)")
	f.Int64Var(&rc.seed, "seed", 1, "noise seed")
	f.Float64Var(&rc.cfg, "cfg", 0, "guidance-plus weight")
	f.Float64Var(&rc.c2, "c2", 0.5, "second node placement")
	f.Float64Var(&rc.c3, "c3", 1.0, "third node placement")
	f.IntVar(&rc.history, "history", 1, "multistep history size")
	f.BoolVar(&rc.denoise, "denoise-to-zero", true, "spend one model call landing on the clean estimate")
	f.IntSliceVar(&rc.shape, "shape", []int{1, 4, 16, 16}, "latent shape")
	f.StringVar(&rc.dbPath, "db", "", "record the run to this SQLite database")
	f.StringVar(&rc.plotOut, "plot", "", "write a run plot SVG to this path")
}

func (rc *runConfig) sigmas() ([]float64, error) {
	switch rc.scheduler {
	case "exponential":
		return schedule.Exponential(rc.steps, rc.sigmaMin, rc.sigmaMax), nil
	case "karras":
		return schedule.Karras(rc.steps, rc.sigmaMin, rc.sigmaMax, rc.rho), nil
	case "linear":
		return schedule.Linear(rc.steps, rc.sigmaMin, rc.sigmaMax), nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q", rc.scheduler)
	}
}

func (rc *runConfig) initialState() *tensor.Tensor {
	rng := rand.New(rand.NewSource(rc.seed))
	x := tensor.New(rc.shape...)
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64() * rc.sigmaMax
	}
	return x
}

// record opens the telemetry store when requested. The returned cleanup is
// safe to call unconditionally.
func (rc *runConfig) record(policy string) (sampler.ProgressFunc, func(), error) {
	if rc.dbPath == "" {
		return nil, func() {}, nil
	}
	store, err := telemetry.Open(rc.dbPath, logger)
	if err != nil {
		return nil, nil, err
	}
	run, err := store.BeginRun(rc.method, policy, rc.seed)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := run.End(); err != nil {
			logger.Warn("end run", zap.Error(err))
		}
		plotRun(store, run.ID, rc.plotOut)
		store.Close()
	}
	return run.Progress(), cleanup, nil
}

func plotRun(store *telemetry.Store, runID, out string) {
	if out == "" {
		return
	}
	steps, err := store.GetSteps(runID)
	if err != nil {
		logger.Warn("load steps for plot", zap.Error(err))
		return
	}
	svg := plotter.PlotRun(steps, 800, 500, "run "+runID)
	if err := os.WriteFile(out, []byte(svg), 0o644); err != nil {
		logger.Warn("write plot", zap.Error(err))
	}
}

func newSampleCmd() *cobra.Command {
	rc := &runConfig{}
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Run the tableau sampler against the synthetic oracle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := tableau.Resolve(rc.method, tableau.Params{H: 1}); err != nil {
				return err
			}
			sigmas, err := rc.sigmas()
			if err != nil {
				return err
			}
			src, err := noise.New(rc.noiseType, rc.shape, noise.Options{Seed: rc.seed})
			if err != nil {
				return err
			}
			progress, cleanup, err := rc.record("")
			if err != nil {
				return err
			}
			defer cleanup()

			model := newOracle(rc.shape, rc.seed)
			it := sampler.NewIntegrator(model, rc.method).
				WithNoise(src).
				WithNodes(rc.c2, rc.c3).
				WithGuidance(rc.cfg).
				WithHistory(rc.history)

			x, err := it.Sample(rc.initialState(), sigmas, sampler.Options{
				Eta:           rc.eta,
				SNoise:        rc.sNoise,
				DenoiseToZero: rc.denoise,
				Progress:      progress,
			})
			if err != nil {
				return err
			}
			logger.Info("sample complete",
				zap.String("method", rc.method),
				zap.Int("steps", rc.steps),
				zap.Float64("final_norm", x.Norm()),
				zap.Float64("oracle_distance", x.Distance(model.target)))
			fmt.Fprintf(cmd.OutOrStdout(), "final state norm %.4f, distance to target %.4f\n",
				x.Norm(), x.Distance(model.target))
			return nil
		},
	}
	addRunFlags(cmd, rc)
	return cmd
}

func newExploreCmd() *cobra.Command {
	rc := &runConfig{}
	var (
		depth, width int
		policy       string
		momentum     float64
		eulersMom    float64
		offset       float64
		guideMode    string
		guideWeight  float64
		simplePhi    bool
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Run the branching trajectory sampler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigmas, err := rc.sigmas()
			if err != nil {
				return err
			}
			src, err := noise.New(rc.noiseType, rc.shape, noise.Options{Seed: rc.seed})
			if err != nil {
				return err
			}
			model := newOracle(rc.shape, rc.seed)
			sel, err := selection.New(policy, selection.Options{Reference: model.target})
			if err != nil {
				return err
			}
			progress, cleanup, err := rc.record(policy)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := explore.Options{
				Depth:         depth,
				Width:         width,
				Eta:           []float64{rc.eta},
				Momentum:      []float64{momentum},
				C2:            []float64{rc.c2},
				CFG:           []float64{rc.cfg},
				EulersMom:     []float64{eulersMom},
				Offset:        []float64{offset},
				SimplePhi:     simplePhi,
				DenoiseToZero: rc.denoise,
				Progress:      progress,
			}
			if guideMode != "" {
				chain, err := guide.NewChain(guide.Guide{
					Mode:    guideMode,
					Target:  model.target,
					Weights: []float64{guideWeight},
				})
				if err != nil {
					return err
				}
				opts.Guide = chain
			}

			ex, err := explore.NewExplorer(model, src, sel, opts)
			if err != nil {
				return err
			}
			x, err := ex.Sample(rc.initialState(), sigmas)
			if err != nil {
				return err
			}
			logger.Info("explore complete",
				zap.String("policy", policy),
				zap.Int("depth", depth),
				zap.Int("width", width),
				zap.Float64("oracle_distance", x.Distance(model.target)))
			fmt.Fprintf(cmd.OutOrStdout(), "final state norm %.4f, distance to target %.4f\n",
				x.Norm(), x.Distance(model.target))
			return nil
		},
	}
	addRunFlags(cmd, rc)
	f := cmd.Flags()
	f.IntVar(&depth, "depth", 1, "tree depth, sigma levels consumed per iteration")
	f.IntVar(&width, "width", 2, "branches per node")
	f.StringVar(&policy, "policy", "mean", "leaf selection policy (see `res4lyf list policies`)")
	f.Float64Var(&momentum, "momentum", 0, "velocity blend weight")
	f.Float64Var(&eulersMom, "eulers-mom", 0, "first-order correction weight on the accepted leaf")
	f.Float64Var(&offset, "offset", 0, "per-step constant shift, scaled by sigma_next")
	f.StringVar(&guideMode, "guide-mode", "", "guide blend mode (see `res4lyf list guides`)")
	f.Float64Var(&guideWeight, "guide-weight", 0.1, "guide weight")
	f.BoolVar(&simplePhi, "simple-phi", true, "closed-form phi instead of incomplete gamma")
	return cmd
}
