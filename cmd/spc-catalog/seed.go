package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spc-catalog/internal/catalog"
	"spc-catalog/internal/database"
)

func (c *CLI) newSeedCmd() *cobra.Command {
	var (
		file        string
		databaseDir string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a catalog snapshot into the database",
		Long: `Load a catalog snapshot (YAML) into the SQLite database.

Without --file the built-in fallback catalog is loaded. Collections and
products are upserted by slug so favorites survive a reseed; certificates,
videos, hero images and projects are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := catalog.LoadSnapshot(file)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(databaseDir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
			path := filepath.Join(databaseDir, "catalog.db")

			db, err := database.New(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Seed(cmd.Context(), snapshot.SeedData()); err != nil {
				return err
			}

			stats := db.GetStats()
			_, err = fmt.Fprintf(c.out, "Seeded %s: %d products in %d collections\n",
				path, stats.TotalProducts, stats.TotalCollections)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Snapshot file (default: built-in catalog)")
	cmd.Flags().StringVar(&databaseDir, "database", envOr("DATABASE_DIR", "/database"), "Database directory")
	return cmd
}
