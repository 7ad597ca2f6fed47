package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"student-chatter/internal/config"
)

func TestRunReturnsSetupErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := run(&config.Config{DBPath: filepath.Join(blocker, "students.sqlite")})
	require.ErrorContains(t, err, "open student database")

	dbPath := filepath.Join(dir, "students.sqlite")
	err = run(&config.Config{
		DBPath:          dbPath,
		PendingFilePath: filepath.Join(blocker, "pending.json"),
		ReportCron:      "0 21 * * *",
	})
	require.ErrorContains(t, err, "init pending repo")
	require.FileExists(t, dbPath)
}
