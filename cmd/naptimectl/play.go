package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"naptime/pkg/naptime"
)

func (a *app) playCmd() *cobra.Command {
	var req naptime.PlayRequest
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play forage matches and report the result",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Team == "" {
				return usagef("--team is required")
			}
			if req.Repeats < 1 {
				return usagef("--repeats must be >= 1, got %d", req.Repeats)
			}
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Play(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "match\tseed\tfitness\tscore\topponent\tsteps\taborted")
			for i, m := range result.Matches {
				fmt.Fprintf(a.stdout, "%d\t%d\t%f\t%d\t%d\t%d\t%t\n", i, m.Seed, m.Fitness, m.Score, m.OpponentScore, m.Steps, m.Aborted)
			}
			fmt.Fprintf(a.stdout, "mean\t%f\n", result.Fitness)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Team, "team", "", "team strategy file or directory")
	flags.StringVar(&req.Opponent, "opponent", "", "opponent strategy; (step) when missing or invalid")
	flags.IntVar(&req.Repeats, "repeats", 1, "number of matches")
	flags.Int64Var(&req.Seed, "seed", 1, "random seed")
	flags.IntVar(&req.Arena.MaxSteps, "max-steps", 0, "match step limit (0 keeps the arena default)")
	flags.IntVar(&req.Arena.Treats, "treats", 0, "treats per match (0 keeps the arena default)")
	return cmd
}
