package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/channel"
)

var indexCmd = &cobra.Command{
	Use:   "index <channel> <subdir>",
	Short: "Regenerate repodata.json for a channel subdir",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	target, err := parseChannelTarget(args[0])
	if err != nil {
		return err
	}
	backend, err := channel.BackendFor(target)
	if err != nil {
		return err
	}
	if err := backend.Reindex(cmd.Context(), target, args[1]); err != nil {
		return err
	}
	fmt.Printf("reindexed %s/%s\n", args[0], args[1])
	return nil
}
