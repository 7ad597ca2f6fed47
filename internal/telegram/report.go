package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"student-chatter/internal/analytics"
	"student-chatter/internal/report"
)

// DailyReport writes the CSV snapshot and sends the grade counts together
// with the activity of the past day to the admin. It is the scheduler job.
func (b *Bot) DailyReport(ctx context.Context) error {
	if b.adminUserID == 0 {
		log.Warn().Msg("⚠️ ADMIN_USER not set, skipping daily report")
		return nil
	}
	return b.sendDailyReport(ctx, b.adminUserID)
}

func (b *Bot) sendDailyReport(ctx context.Context, chatID int64) error {
	text, err := b.buildDailyReport(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	b.sendMessage(chatID, text)
	return nil
}

func (b *Bot) buildDailyReport(ctx context.Context, now time.Time) (string, error) {
	students, err := b.store.ListStudents(ctx)
	if err != nil {
		return "", fmt.Errorf("list students: %w", err)
	}
	chats, err := b.store.LoadInteractions(ctx)
	if err != nil {
		return "", fmt.Errorf("load chats: %w", err)
	}
	audits, err := b.store.LoadAudit(ctx)
	if err != nil {
		return "", fmt.Errorf("load audit log: %w", err)
	}

	var bld strings.Builder
	fmt.Fprintf(&bld, "📊 Daily report, %d students\n", len(students))
	if len(students) > 0 {
		bld.WriteString(report.FormatCounts(report.GradeCounts(students)))
		bld.WriteByte('\n')
		dest, err := b.exporter.Export(ctx, report.Table(students))
		if err != nil {
			return "", fmt.Errorf("export snapshot: %w", err)
		}
		fmt.Fprintf(&bld, "Snapshot saved to %s\n", dest)
	}
	bld.WriteByte('\n')
	bld.WriteString(analytics.AnalyzeDay(chats, audits, now).Summary())
	return bld.String(), nil
}
