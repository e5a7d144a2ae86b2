package main

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/spf13/cobra"
)

func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the built-in presets or print one as a chain file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := chain.NewManager(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

			show, _ := cmd.Flags().GetString("show")
			if show == "" {
				for _, name := range manager.PresetNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			if err := manager.LoadPreset(show); err != nil {
				return err
			}
			return WriteChainFile(cmd.OutOrStdout(), manager.CharacterSet(), manager.Modules())
		},
	}

	cmd.Flags().String("show", "", "Print the named preset as a YAML chain file")
	return cmd
}
