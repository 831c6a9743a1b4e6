package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notes-booklet/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed jobs",
	Long: `History lists the jobs recorded by the upload service, newest first:
when each conversion ran, how many pages came in and how many sheets
went out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(stringSetting(cmd, "history-db", "history-db"))
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		jobs, err := store.Recent(limit)
		if err != nil {
			return err
		}

		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no jobs recorded")
			return nil
		}
		for _, j := range jobs {
			fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  %3d pages -> %2d sheets  %s\n",
				j.ID, j.CreatedAt.Format("2006-01-02 15:04"), j.Pages, j.Sheets, j.Output)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("history-db", "booklet.db", "job history database")
	historyCmd.Flags().Int("limit", 20, "maximum number of jobs to list")

	rootCmd.AddCommand(historyCmd)
}
