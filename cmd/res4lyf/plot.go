package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drozbay/RES4LYF/plotter"
	"github.com/drozbay/RES4LYF/schedule"
	"github.com/drozbay/RES4LYF/telemetry"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render SVG plots",
	}
	cmd.AddCommand(newPlotSchedulesCmd(), newPlotRunCmd())
	return cmd
}

func newPlotSchedulesCmd() *cobra.Command {
	var (
		steps    int
		sigmaMin float64
		sigmaMax float64
		rho      float64
		out      string
	)
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Compare the sigma schedules at the given bounds",
		RunE: func(_ *cobra.Command, _ []string) error {
			svg := plotter.PlotSchedules(map[string][]float64{
				"exponential": schedule.Exponential(steps, sigmaMin, sigmaMax),
				"karras":      schedule.Karras(steps, sigmaMin, sigmaMax, rho),
				"linear":      schedule.Linear(steps, sigmaMin, sigmaMax),
			}, 800, 500)
			if err := os.WriteFile(out, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("write plot: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&steps, "steps", 25, "number of noise levels")
	f.Float64Var(&sigmaMin, "sigma-min", 0.03, "final positive noise level")
	f.Float64Var(&sigmaMax, "sigma-max", 14.6, "initial noise level")
	f.Float64Var(&rho, "rho", 7, "karras rho")
	f.StringVar(&out, "out", "schedules.svg", "output path")
	return cmd
}

func newPlotRunCmd() *cobra.Command {
	var (
		dbPath string
		runID  string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plot a recorded run's state and denoised norms",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := telemetry.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				recent, err := store.RecentRuns(1)
				if err != nil {
					return err
				}
				if len(recent) == 0 {
					return fmt.Errorf("no runs recorded in %s", dbPath)
				}
				runID = recent[0].ID
			}
			steps, err := store.GetSteps(runID)
			if err != nil {
				return err
			}
			svg := plotter.PlotRun(steps, 800, 500, "run "+runID)
			if err := os.WriteFile(out, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("write plot: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbPath, "db", "res4lyf.db", "SQLite database path")
	f.StringVar(&runID, "run", "", "run ID (default: most recent)")
	f.StringVar(&out, "out", "run.svg", "output path")
	return cmd
}
