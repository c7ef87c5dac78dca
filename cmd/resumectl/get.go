package main

import (
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/resumeprocessor/internal/app"
	"github.com/nikhilbhutani/resumeprocessor/internal/document"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored résumé",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := document.NewService(a.Store, nil, 0).Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), doc)
}
