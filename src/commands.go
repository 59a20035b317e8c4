package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the files the watcher currently sees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgManager, err := loadConfig()
		if err != nil {
			return err
		}
		root := cfgManager.Get().WatchPath

		snapshot, err := watching.Capture(afero.NewOsFs(), root)
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(snapshot))
		for path := range snapshot {
			paths = append(paths, path)
		}
		slices.Sort(paths)

		out := cmd.OutOrStdout()
		for _, path := range paths {
			meta := snapshot[path]
			fmt.Fprintf(out, "%s\t%d\t%s\n", path, meta.Size, meta.ModifiedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(out, "%d files under %s\n", len(paths), root)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgManager, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cfgManager.GetYAML())
		return nil
	},
}
