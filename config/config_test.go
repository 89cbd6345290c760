package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "attendance.db", cfg.DatabasePath)
	assert.Equal(t, "Morning", cfg.ShiftName)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, config.AnnouncerLog, cfg.Announcer)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	// GIVEN: A .env file and one variable already set in the environment
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"PORT=9000\nTIMEZONE=UTC\nCHECKIN_RATE=0.5\nCORS_ORIGINS=http://a.test, http://b.test\n",
	), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: The environment wins over the file
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 0.5, cfg.CheckInRate)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.AuthEnabled())

	// godotenv sets process variables; t.Setenv restores the ones we own
	os.Unsetenv("TIMEZONE")
	os.Unsetenv("CHECKIN_RATE")
	os.Unsetenv("CORS_ORIGINS")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CHECKIN_BURST", "many")
	t.Setenv("JWT_TTL", "forever")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECKIN_BURST")
	assert.Contains(t, err.Error(), "JWT_TTL")
}

func TestValidate_DriverRequirements(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "host=localhost dbname=attendance")
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)

	t.Setenv("ANNOUNCER", "telegram")
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")

	t.Setenv("ANNOUNCER", "carrier-pigeon")
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "ANNOUNCER")
}

func TestValidate_DailyReportAt(t *testing.T) {
	t.Setenv("DAILY_REPORT_AT", "18:30")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "18:30", cfg.DailyReportAt)

	t.Setenv("DAILY_REPORT_AT", "half past six")
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "DAILY_REPORT_AT")
}

func TestLoadKiosk_IgnoresServerSettings(t *testing.T) {
	// GIVEN: A server configuration that would not validate
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("ANNOUNCER", "carrier-pigeon")
	t.Setenv("BACKEND_URL", "http://10.0.0.5:8080")

	// WHEN: The kiosk loads its settings
	k, err := config.LoadKiosk(filepath.Join(t.TempDir(), "missing.env"))

	// THEN: Only the kiosk keys matter
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080", k.BackendURL)
	assert.Equal(t, "info", k.LogLevel)
}

func TestLoadKiosk_Defaults(t *testing.T) {
	k, err := config.LoadKiosk(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", k.BackendURL)
}

func TestLoadKiosk_BadURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "10.0.0.5:8080")
	_, err := config.LoadKiosk(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "BACKEND_URL")
}
