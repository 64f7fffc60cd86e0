package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drozbay/RES4LYF/guide"
	"github.com/drozbay/RES4LYF/noise"
	"github.com/drozbay/RES4LYF/selection"
	"github.com/drozbay/RES4LYF/tableau"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered identifiers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "methods",
			Short: "Integration methods",
			Run: func(cmd *cobra.Command, _ []string) {
				for _, name := range tableau.Names() {
					kind := "linear"
					if tableau.IsExponential(name) {
						kind = "exponential"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", name, kind)
				}
			},
		},
		&cobra.Command{
			Use:   "policies",
			Short: "Leaf selection policies",
			Run: func(cmd *cobra.Command, _ []string) {
				for _, name := range selection.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			},
		},
		&cobra.Command{
			Use:   "noise",
			Short: "Noise generators",
			Run: func(cmd *cobra.Command, _ []string) {
				for _, name := range noise.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			},
		},
		&cobra.Command{
			Use:   "guides",
			Short: "Guide blend modes",
			Run: func(cmd *cobra.Command, _ []string) {
				for _, name := range guide.Modes() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			},
		},
	)
	return cmd
}
