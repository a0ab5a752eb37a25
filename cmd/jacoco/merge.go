package main

import (
	"context"

	"github.com/jenkins-x-apps/jacoco-go/internal/config"
	"github.com/jenkins-x-apps/jacoco-go/internal/storage"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge DUMP...",
	Short: "Merge execution data dumps into the data file",
	Long: `merge adds the execution records and sessions of the given dumps to the
SQLite data file, creating it if needed. A dump is a local JSON file or an
http(s) or bucket URL.

Records whose probe count differs from the stored record of the same class
are reported and skipped; the stored record stays unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		_, err := merge(ctx, configuration, args)
		return err
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

// merge stores the given dumps in the data file and returns the number of
// records which could not be merged.
func merge(ctx context.Context, cfg config.Configuration, sources []string) (int, error) {
	store, err := storage.Open(cfg.DataFile())
	if err != nil {
		return 0, err
	}
	defer store.Close()

	skipped := 0
	for _, source := range sources {
		dump, err := loadDump(cfg.Namespace(), source)
		if err != nil {
			return skipped, err
		}
		failures, err := store.Save(ctx, dump.Records, dump.Sessions)
		if err != nil {
			return skipped, err
		}
		for id, err := range failures {
			logger.Warnf("execution data for %s from %s not merged: %s", id, source, err)
		}
		skipped += len(failures)
		logger.Infof("merged %d records of %d sessions from %s into %s", len(dump.Records)-len(failures), len(dump.Sessions), source, cfg.DataFile())
	}
	return skipped, nil
}
