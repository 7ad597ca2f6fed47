package config

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_PATH", "EXPORT_DIR", "REPORT_CRON", "LOG_LEVEL", "ALLOWED_USERS", "ADMIN_USER"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "data/students.sqlite", cfg.DBPath)
	require.Equal(t, "exports", cfg.ExportDir)
	require.Equal(t, "0 21 * * *", cfg.ReportCron)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.AllowedUsers)
	require.Zero(t, cfg.AdminUserID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/school.sqlite")
	t.Setenv("ALLOWED_USERS", "1:2:3")
	t.Setenv("ADMIN_USER", "42")
	t.Setenv("REPORT_CRON", "*/5 * * * *")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/school.sqlite", cfg.DBPath)
	require.Equal(t, []int64{1, 2, 3}, cfg.AllowedUsers)
	require.Equal(t, int64(42), cfg.AdminUserID)
	require.Equal(t, "*/5 * * * *", cfg.ReportCron)
}

func TestLoadRejectsBadUserID(t *testing.T) {
	t.Setenv("ALLOWED_USERS", "1:bob")
	_, err := Load()
	require.Error(t, err)
}

func TestNewExitsThroughLogger(t *testing.T) {
	if os.Getenv("CONFIG_NEW_CHILD") == "1" {
		New()
		return
	}
	cmd := exec.Command(os.Args[0], "-test.run=^TestNewExitsThroughLogger$")
	cmd.Env = append(os.Environ(), "CONFIG_NEW_CHILD=1", "ADMIN_USER=not-a-number")
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Contains(t, string(out), `"level":"fatal"`)
	require.Contains(t, string(out), `"message":"failed to parse config"`)
}

func TestNewReturnsConfig(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/new.sqlite")
	require.Equal(t, "/tmp/new.sqlite", New().DBPath)
}
