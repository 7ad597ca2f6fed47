// Command studentctl manages the student database from a terminal, either as
// a conversational REPL or through one-shot subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"student-chatter/internal/config"
	"student-chatter/internal/interpreter"
	"student-chatter/internal/logging"
	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

const (
	Version = "0.1.0"
	appName = "studentctl"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what the subcommands share. The store is opened lazily by the
// commands that need it.
type app struct {
	dbPath    string
	actor     string
	logLevel  string
	exportDir string

	store  *storage.SQLiteStore
	interp *interpreter.Interpreter
}

func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := storage.Open(ctx, a.dbPath)
	if err != nil {
		return err
	}
	a.store = store
	a.interp = interpreter.New(store, store, store, report.CSVExporter{Dir: a.exportDir})
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close student database")
	}
	a.store, a.interp = nil, nil
}

func (a *app) actorValue() interpreter.Actor { return interpreter.Actor(a.actor) }

func rootCmd(cfg *config.Config) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Student record assistant",
		Long: `studentctl manages student records through plain-language commands
such as "add student Alice 20 A" or "show student count per grade".

Changes made with --actor set are written to the audit log. Every
command typed into chat or say is saved in the chat log.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(a.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&a.dbPath, "db", cfg.DBPath, "SQLite database path")
	cmd.PersistentFlags().StringVar(&a.actor, "actor", "", "Name recorded in the audit log (empty = anonymous)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.exportDir, "export-dir", cfg.ExportDir, "Directory for CSV exports")

	cmd.AddCommand(
		chatCmd(a),
		sayCmd(a),
		importCmd(a),
		exportCmd(a),
		studentsCmd(a),
		auditCmd(a),
		chatsCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
