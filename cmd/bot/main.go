package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/auth"
	"student-chatter/internal/config"
	"student-chatter/internal/interpreter"
	"student-chatter/internal/logging"
	"student-chatter/internal/pending"
	"student-chatter/internal/report"
	"student-chatter/internal/scheduler"
	"student-chatter/internal/storage"
	"student-chatter/internal/telegram"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg := config.New()
	if err := logging.Setup(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}
	if envErr != nil {
		log.Warn().Err(envErr).Msg(".env file not found")
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open student database %s: %w", cfg.DBPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close student database")
		}
	}()

	var allowRepo auth.Repository
	if cfg.AllowlistFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			log.Error().Err(err).Msg("failed to init allowlist repo")
		} else {
			allowRepo = repo
		}
	}
	authSvc, err := auth.NewWithRepo(allowRepo, cfg.AdminUserID, cfg.AllowedUsers)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	var queue *pending.Queue
	if cfg.PendingFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.PendingFilePath)
		if err != nil {
			return fmt.Errorf("init pending repo: %w", err)
		}
		if queue, err = pending.NewQueue(repo); err != nil {
			return fmt.Errorf("load pending requests: %w", err)
		}
	}

	exporter := report.CSVExporter{Dir: cfg.ExportDir}
	interp := interpreter.New(store, store, store, exporter)

	bot, err := telegram.New(cfg.TelegramBotToken, authSvc, interp, store, telegram.Options{
		AdminUserID: cfg.AdminUserID,
		ParseMode:   cfg.MessageParseMode,
		AllowGuests: cfg.AllowGuests,
		Exporter:    exporter,
		Pending:     queue,
	})
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	sched := scheduler.New(cfg.ReportCron)
	sched.SetJob(bot.DailyReport)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	log.Info().Str("db", cfg.DBPath).Bool("daily_report", sched.IsRunning()).Msg("🚀 student assistant bot running")
	bot.Start(ctx)
	log.Info().Msg("shutting down")
	return nil
}
