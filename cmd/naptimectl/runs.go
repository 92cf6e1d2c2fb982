package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) runsCmd() *cobra.Command {
	var (
		limit int
		runID string
		best  bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, or one run's generations with --run",
		Long:  "List stored runs. With --run, print that run's generations from the store,\nor from --artifacts when the store does not hold it.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if best && runID == "" {
				return usagef("--best requires --run")
			}
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if best {
				detail, err := client.Run(cmd.Context(), runID)
				if err != nil {
					return err
				}
				for _, program := range detail.BestPrograms {
					fmt.Fprintln(a.stdout, program)
				}
				return nil
			}
			if runID != "" {
				history, err := client.History(cmd.Context(), runID)
				if err != nil {
					return err
				}
				for _, g := range history {
					fmt.Fprintf(a.stdout, "%d\t%f\t%f\n", g.Index, g.Mean, g.Max)
				}
				return nil
			}

			items, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\tpop=%d\tgens=%d\tseed=%d\tcompleted=%t\tbest=%f\n",
					item.RunID,
					item.CreatedAt.UTC().Format(time.RFC3339),
					item.Simulator,
					item.Population,
					item.Generations,
					item.Seed,
					item.Completed,
					item.BestFitness,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "print the stored generations of this run")
	cmd.Flags().BoolVar(&best, "best", false, "with --run, print the run's fittest programs instead")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		runID  string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifact files, the newest run by default",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.artifactsDir == "" {
				return usagef("--artifacts is required")
			}
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			dir, err := client.Export(cmd.Context(), runID, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default newest)")
	cmd.Flags().StringVar(&outDir, "out", "exports", "destination directory")
	return cmd
}
