package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/config"
	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/source"
)

func newBuildCommand(configFlag *string) *cobra.Command {
	var (
		outPath     string
		listingPath string
		folderID    string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "List the video folder and write the catalog snapshot",
		Long: "Build classifies every video in the configured Drive folder and writes the\n" +
			"resulting catalog as JSON, or YAML when the output ends in .yaml/.yml.\n" +
			"Use --listing to build from a saved JSON folder listing instead of Drive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			var files []models.SourceFile
			if listingPath != "" {
				listed, err := readListing(listingPath)
				if err != nil {
					return err
				}
				files = listed
			} else {
				cfg, err := config.LoadFrom(*configFlag)
				if err != nil {
					return err
				}
				if !cfg.Drive.Enabled() {
					return errors.New("drive credentials are required without --listing")
				}
				if folderID == "" {
					folderID = cfg.Catalog.FolderID
				}
				if outPath == "" {
					outPath = cfg.Catalog.SnapshotPath
				}

				drive, err := source.NewDrive(cmd.Context(), source.DriveConfig{
					CredentialsJSON: []byte(cfg.Drive.CredentialsJSON),
					CredentialsFile: cfg.Drive.CredentialsFile,
				}, logger)
				if err != nil {
					return err
				}
				files, err = drive.ListVideoFiles(cmd.Context(), folderID)
				if err != nil {
					return err
				}
			}

			if outPath == "" {
				outPath = "katas.json"
			}

			katas := catalog.Build(files, logger)
			if err := catalog.WriteSnapshot(outPath, katas); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d katas (%d files listed) to %s\n", len(katas), len(files), outPath)
			fmt.Fprintln(out, renderBeltSummary(katas))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Snapshot output path (defaults to the configured snapshot or katas.json)")
	cmd.Flags().StringVar(&listingPath, "listing", "", "JSON file with a saved folder listing")
	cmd.Flags().StringVar(&folderID, "folder", "", "Drive folder id (defaults to the configured folder)")

	return cmd
}

func readListing(path string) ([]models.SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	var files []models.SourceFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", path, err)
	}
	return files, nil
}
