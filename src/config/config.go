package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvFileVar = "SCREEN_OCR_OVERLAY"
	appDirName = "screen-ocr-overlay"

	ConsentPrompt = "prompt"
	ConsentAuto   = "auto"

	historyFile = "history.db"
	prefsFile   = "prefs.yaml"
)

type LoadOptions struct {
	DataDirOverride string
	// EnvPath, when set, replaces the executable-directory lookup.
	EnvPath string
}

type Config struct {
	Hotkey            string
	EnableFileLogging bool
	LogLevel          string
	DataDir           string

	HistoryRetentionDays int
	HistoryLimit         int

	CaptureRetryAttempts int
	CaptureRetryDelayMS  int
	RestoreTimerSec      int
	ClickThresholdPx     int
	CaptureConsent       string

	OCRContrast    float64
	OCRPreferCJK   bool
	OCRLatinLang   string
	OCRCJKLang     string
	OCRDeadlineSec int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_OCR_OVERLAY env var as a path to a config file
	envPath := opts.EnvPath
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		Hotkey:            getEnvWithDefault("HOTKEY", "Ctrl+Alt+O"),
		EnableFileLogging: getBool("ENABLE_FILE_LOGGING", false),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		DataDir:           resolveDataDir(opts),

		HistoryRetentionDays: getPositiveInt("HISTORY_RETENTION_DAYS", 30),
		HistoryLimit:         getPositiveInt("HISTORY_LIMIT", 100),

		CaptureRetryAttempts: getPositiveInt("CAPTURE_RETRY_ATTEMPTS", 10),
		CaptureRetryDelayMS:  getPositiveInt("CAPTURE_RETRY_DELAY_MS", 100),
		RestoreTimerSec:      getPositiveInt("RESTORE_TIMER_SEC", 5),
		ClickThresholdPx:     getPositiveInt("CLICK_THRESHOLD_PX", 10),
		CaptureConsent:       resolveConsent(os.Getenv("CAPTURE_CONSENT")),

		OCRContrast:    getFloat("OCR_CONTRAST", 0.25),
		OCRPreferCJK:   getBool("OCR_PREFER_CJK", true),
		OCRLatinLang:   getEnvWithDefault("OCR_LATIN_LANG", "eng"),
		OCRCJKLang:     getEnvWithDefault("OCR_CJK_LANG", "chi_sim"),
		OCRDeadlineSec: getPositiveInt("OCR_DEADLINE_SEC", 20),
	}
	return cfg, nil
}

func (c *Config) HistoryPath() string { return filepath.Join(c.DataDir, historyFile) }
func (c *Config) PrefsPath() string   { return filepath.Join(c.DataDir, prefsFile) }

func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

func (c *Config) CaptureRetryDelay() time.Duration {
	return time.Duration(c.CaptureRetryDelayMS) * time.Millisecond
}

func (c *Config) RestoreTimeout() time.Duration {
	return time.Duration(c.RestoreTimerSec) * time.Second
}

func (c *Config) OCRDeadline() time.Duration {
	return time.Duration(c.OCRDeadlineSec) * time.Second
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvFileVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveDataDir(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.DataDirOverride); override != "" {
		return override
	}
	if dir := strings.TrimSpace(os.Getenv("DATA_DIR")); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

func resolveConsent(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ConsentAuto:
		return ConsentAuto
	default:
		return ConsentPrompt
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			return f
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultValue
}
