package main

import (
	"github.com/spf13/cobra"

	"notes-booklet/internal/history"
	"notes-booklet/internal/layout"
	"notes-booklet/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the booklet upload service",
	Long: `Serve starts an HTTP server with a single /process-pdf endpoint: GET
returns an upload form, POST accepts a multipart PDF upload (form field
"file") and responds with the converted booklet as an attachment
download. Uploads and results are kept in two scratch directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromCmd(cmd)

		var hist *history.Store
		if dbPath := stringSetting(cmd, "history-db", "history-db"); dbPath != "" {
			h, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer h.Close()
			hist = h
		}

		srv, err := server.New(server.Config{
			Addr:         stringSetting(cmd, "addr", "addr"),
			UploadsDir:   stringSetting(cmd, "uploads-dir", "uploads-dir"),
			ProcessedDir: stringSetting(cmd, "processed-dir", "processed-dir"),
			Options:      opts,
			History:      hist,
		})
		if err != nil {
			return err
		}
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8085", "listen address")
	serveCmd.Flags().String("uploads-dir", "uploads", "directory for uploaded files")
	serveCmd.Flags().String("processed-dir", "processed", "directory for converted files")
	serveCmd.Flags().String("history-db", "booklet.db", "job history database (empty disables recording)")
	serveCmd.Flags().Bool("grid", false, "draw dividing grid lines on each sheet")
	serveCmd.Flags().Int("rows", layout.DefaultRows, "cells per sheet")

	rootCmd.AddCommand(serveCmd)
}
