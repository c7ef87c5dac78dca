package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/resumeprocessor/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var migrateList bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "List embedded migrations without applying them")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	versions, err := database.Migrations()
	if err != nil {
		return err
	}
	if migrateList {
		for _, v := range versions {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := database.NewPool(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(cmd.Context(), pool); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", len(versions))
	return nil
}
