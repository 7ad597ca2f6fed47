// Command students-mcp-server serves the student database over MCP on stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/config"
	"student-chatter/internal/interpreter"
	"student-chatter/internal/logging"
	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg := config.New()
	// stdout carries the protocol, so logs stay on stderr.
	if err := logging.Setup(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("❌ failed to open student database")
	}
	defer store.Close()

	interp := interpreter.New(store, store, store, report.CSVExporter{Dir: cfg.ExportDir})

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "student-chatter-mcp",
		Version: "1.0.0",
	}, nil)
	NewStudentsMCPServer(interp, store).Register(server)

	log.Info().Str("db", cfg.DBPath).Msg("🔗 starting students MCP server on stdin/stdout")
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("❌ students MCP server failed")
	}
}
