/*
config.go - Application configuration

PURPOSE:
  Reads settings from the environment, after loading an optional .env
  file with godotenv. Variables already set in the environment win over
  the .env file. Every key has a default so a bare `go run ./cmd/server`
  works on a laptop.

KEYS:
  PORT, STORE_DRIVER (sqlite|postgres), DATABASE_PATH, DATABASE_URL,
  LOG_LEVEL, TIMEZONE, SHIFT_NAME, SNAPSHOT_DIR, PHOTO_DIR,
  MAX_UPLOAD_BYTES, JWT_SECRET, JWT_TTL, CORS_ORIGINS,
  CHECKIN_RATE, CHECKIN_BURST, ANNOUNCER (log|command|telegram|none),
  TTS_COMMAND, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID,
  ANNOUNCE_WORKERS, ANNOUNCE_QUEUE, DAILY_REPORT_AT (HH:MM, empty
  disables)

KIOSK:
  LoadKiosk reads only BACKEND_URL and LOG_LEVEL, so a kiosk sharing a
  .env file with the server is not held to the server's requirements.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	AnnouncerLog      = "log"
	AnnouncerCommand  = "command"
	AnnouncerTelegram = "telegram"
	AnnouncerNone     = "none"
)

type Config struct {
	Port         string
	StoreDriver  string
	DatabasePath string
	DatabaseURL  string
	LogLevel     string
	Location     *time.Location
	ShiftName    string

	SnapshotDir    string
	PhotoDir       string
	MaxUploadBytes int64

	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string

	CheckInRate  float64
	CheckInBurst int

	Announcer       string
	TTSCommand      string
	TelegramToken   string
	TelegramChatID  int64
	AnnounceWorkers int
	AnnounceQueue   int
	DailyReportAt   string
}

// Kiosk is the configuration of the check-in terminal.
type Kiosk struct {
	BackendURL string
	LogLevel   string
}

// Load reads the given .env files (".env" when none are named), then the
// environment. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var errs []error

	loc, err := loadLocation(getEnv("TIMEZONE", "Local"))
	errs = append(errs, err)

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DatabasePath: getEnv("DATABASE_PATH", "attendance.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Location:     loc,
		ShiftName:    getEnv("SHIFT_NAME", "Morning"),

		SnapshotDir: getEnv("SNAPSHOT_DIR", "snapshots"),
		PhotoDir:    getEnv("PHOTO_DIR", "employee_photos"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		Announcer:     strings.ToLower(getEnv("ANNOUNCER", AnnouncerLog)),
		TTSCommand:    getEnv("TTS_COMMAND", "espeak"),
		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		DailyReportAt: getEnv("DAILY_REPORT_AT", ""),
	}

	cfg.MaxUploadBytes, err = getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20)
	errs = append(errs, err)
	cfg.JWTTTL, err = getEnvAsDuration("JWT_TTL", 24*time.Hour)
	errs = append(errs, err)
	cfg.CheckInRate, err = getEnvAsFloat("CHECKIN_RATE", 5)
	errs = append(errs, err)
	cfg.CheckInBurst, err = getEnvAsInt("CHECKIN_BURST", 10)
	errs = append(errs, err)
	cfg.TelegramChatID, err = getEnvAsInt64("TELEGRAM_CHAT_ID", 0)
	errs = append(errs, err)
	cfg.AnnounceWorkers, err = getEnvAsInt("ANNOUNCE_WORKERS", 1)
	errs = append(errs, err)
	cfg.AnnounceQueue, err = getEnvAsInt("ANNOUNCE_QUEUE", 32)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadKiosk reads the kiosk settings the same way Load does.
func LoadKiosk(files ...string) (Kiosk, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Kiosk{}, fmt.Errorf("failed to load env file: %w", err)
	}

	k := Kiosk{
		BackendURL: getEnv("BACKEND_URL", "http://127.0.0.1:8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
	u, err := url.Parse(k.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Kiosk{}, fmt.Errorf("BACKEND_URL %q is not an http(s) URL", k.BackendURL)
	}
	return k, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, postgres", c.StoreDriver))
	}

	switch c.Announcer {
	case AnnouncerLog, AnnouncerNone:
	case AnnouncerCommand:
		if c.TTSCommand == "" {
			errs = append(errs, errors.New("TTS_COMMAND is required for the command announcer"))
		}
	case AnnouncerTelegram:
		if c.TelegramToken == "" || c.TelegramChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are required for the telegram announcer"))
		}
	default:
		errs = append(errs, fmt.Errorf("ANNOUNCER %q is not one of log, command, telegram, none", c.Announcer))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.CheckInRate <= 0 || c.CheckInBurst <= 0 {
		errs = append(errs, errors.New("CHECKIN_RATE and CHECKIN_BURST must be positive"))
	}
	if c.AnnounceWorkers <= 0 || c.AnnounceQueue <= 0 {
		errs = append(errs, errors.New("ANNOUNCE_WORKERS and ANNOUNCE_QUEUE must be positive"))
	}
	if c.DailyReportAt != "" {
		if _, err := time.Parse("15:04", c.DailyReportAt); err != nil {
			errs = append(errs, fmt.Errorf("DAILY_REPORT_AT %q is not HH:MM", c.DailyReportAt))
		}
	}

	return errors.Join(errs...)
}

// AuthEnabled reports whether admin routes require a token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// =============================================================================
// HELPERS
// =============================================================================

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return v, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return v, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return v, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return v, nil
}

func loadLocation(name string) (*time.Location, error) {
	if strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
