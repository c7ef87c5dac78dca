package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/resumeprocessor/internal/app"
	"github.com/nikhilbhutani/resumeprocessor/internal/config"
	"github.com/nikhilbhutani/resumeprocessor/internal/document"
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Upload a résumé and run the pipeline on it",
	Long:  "Stores the file as a raw résumé, runs extraction, summarization and redaction synchronously, and prints the processed document.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var (
	processMemory  bool
	processSQLite  string
	processOutFile string
)

func init() {
	processCmd.Flags().BoolVar(&processMemory, "memory", false, "Use an in-memory store instead of the configured backend")
	processCmd.Flags().StringVar(&processSQLite, "sqlite", "", "Store documents in this SQLite file instead of the configured backend")
	processCmd.MarkFlagsMutuallyExclusive("memory", "sqlite")
	processCmd.Flags().StringVarP(&processOutFile, "out", "o", "", "Write the processed document to this file instead of stdout")

	rootCmd.AddCommand(processCmd)
}

// deferred records the id instead of dispatching so the command can process
// synchronously.
type deferred struct{ id string }

func (d *deferred) Dispatch(_ context.Context, id string) error {
	d.id = id
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	switch {
	case processMemory:
		cfg.Store.Backend = config.BackendMemory
	case processSQLite != "":
		cfg.Store.Backend = config.BackendSQLite
		cfg.Store.SQLitePath = processSQLite
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	d := &deferred{}
	svc := document.NewService(a.Store, d, cfg.Intake.MaxUploadBytes)
	raw, err := svc.Submit(ctx, filepath.Base(args[0]), "", data)
	if err != nil {
		return err
	}

	processed, err := a.Orchestrator.ProcessAndStore(ctx, raw.ID)
	if err != nil {
		return fmt.Errorf("process %s: %w", raw.ID, err)
	}

	out := cmd.OutOrStdout()
	if processOutFile != "" {
		f, err := os.Create(processOutFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return printJSON(out, processed)
}
