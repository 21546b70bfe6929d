package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/silbinarywolf/simple-game/internal/e2e"
)

func newHistoryCmd() *cobra.Command {
	var (
		db    string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scenario results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := e2e.OpenHistory(db)
			if err != nil {
				return err
			}
			defer history.Close()
			results, err := history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			e2e.NewReporter(os.Stdout).History(results)
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", e2e.DefaultHistoryFile, "SQLite file written by e2e run")
	cmd.Flags().IntVar(&limit, "limit", 20, "how many results to show")
	return cmd
}
