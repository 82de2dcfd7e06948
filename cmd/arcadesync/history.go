package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/arcadesync/pkg/agent/history"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/output"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sync passes",
	Long: `List the sync passes recorded by the agent, newest first.

History is stored in a Badger database under history.path
(default: $XDG_DATA_HOME/arcadesync/history).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of passes to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAgent(cfgFile)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		printInfo("History is disabled (history.enabled = false).")
		return nil
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("%w (the agent may be recording a pass, try again)", err)
	}
	defer store.Close()

	reports, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	values := make([]types.PassReport, len(reports))
	for i, r := range reports {
		values[i] = *r
	}
	return render(func(f output.Formatter, buf *bytes.Buffer) error {
		return f.History(buf, values)
	})
}
