// Command res4lyf runs the tableau sampler and the branching trajectory
// explorer against a synthetic denoising oracle, records runs to SQLite, and
// renders schedule/run plots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "res4lyf",
		Short: "Runge-Kutta diffusion sampling with branching trajectory search",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return initConfig(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default res4lyf.yaml in cwd)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSampleCmd())
	root.AddCommand(newExploreCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newPlotCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initConfig loads defaults from a config file and binds every flag of the
// invoked command, so file values act as flag defaults.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("res4lyf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("RES4LYF")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit one must load.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if cfgFile != "" || !os.IsNotExist(err) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}
