package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Parse and type check strategies, printing them in canonical form",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("validate needs at least one strategy path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			for _, path := range args {
				infos, err := client.Validate(path)
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Fprintf(a.stdout, "; %s program %d size=%d depth=%d\n", info.Path, info.Slot, info.Size, info.Depth)
					fmt.Fprint(a.stdout, info.Pretty)
				}
			}
			return nil
		},
	}
}
