package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"notes-booklet/internal/booklet"
	"notes-booklet/internal/layout"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.pdf>...",
	Short: "Convert PDFs into booklet sheets",
	Long: `Convert places the pages of each input PDF into stacked cells on A4
sheets, four pages per sheet, and writes "Notes - <basename>.pdf" into
the working directory (or --output-dir).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromCmd(cmd)
		outDir := stringSetting(cmd, "output-dir", "output-dir")

		for _, in := range args {
			out := filepath.Join(outDir, "Notes - "+filepath.Base(in))
			res, err := booklet.ComposeFile(in, out, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted: %s (%d pages -> %d sheets)\n",
				out, res.SourcePages, res.Sheets)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().Bool("grid", false, "draw dividing grid lines on each sheet")
	convertCmd.Flags().Int("rows", layout.DefaultRows, "cells per sheet")
	convertCmd.Flags().String("output-dir", ".", "directory for converted files")

	rootCmd.AddCommand(convertCmd)
}

// optionsFromCmd builds compositor options from the shared grid/rows
// flags, falling back to config values.
func optionsFromCmd(cmd *cobra.Command) booklet.Options {
	opts := booklet.DefaultOptions()
	opts.Rows = intSetting(cmd, "rows", "rows")
	opts.DrawGrid = boolSetting(cmd, "grid", "grid")
	return opts
}
