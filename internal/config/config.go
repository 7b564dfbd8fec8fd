package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Delivery controls what happens to an assembled chapter document.
type Delivery struct {
	Mode            string `toml:"mode"`   // "local" or "email"
	Format          string `toml:"format"` // "pdf" or "epub"
	DeleteAfterSend bool   `toml:"delete_after_send"`
}

// Email contains SMTP settings for send-to-Kindle delivery.
type Email struct {
	KindleAddress string `toml:"kindle_address"`
	SenderAddress string `toml:"sender_address"`
	SMTPServer    string `toml:"smtp_server"`
	SMTPPort      int    `toml:"smtp_port"`
	AppPassword   string `toml:"app_password"`
}

// Check contains tuning for the update check cycle.
type Check struct {
	AutoDownload bool `toml:"auto_download"`
	// FallbackDelayDays is the default waiting period before a chapter that
	// only a backup source carries is fetched from that backup. Individual
	// titles may override it.
	FallbackDelayDays int `toml:"fallback_delay_days"`
	// SessionRenewEvery tears down and relaunches a browser-backed source
	// session after this many consecutive chapter fetches in one cycle.
	SessionRenewEvery   int `toml:"session_renew_every"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
	RateLimitMillis     int `toml:"rate_limit_millis"`
}

// Headless contains settings for the browser-automation source adapter.
type Headless struct {
	BrowserBin        string `toml:"browser_bin"`
	NavTimeoutSeconds int    `toml:"nav_timeout_seconds"`
	SettleMillis      int    `toml:"settle_millis"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Cron records the schedule the cron command installs.
type Cron struct {
	Enabled bool   `toml:"enabled"`
	Time    string `toml:"time"`
}

// Config encapsulates all configuration values for tosho.
//
// Sections by subsystem:
//   - Paths: download, state, and log directories
//   - Delivery: local directory vs. send-to-Kindle, output format
//   - Email: SMTP connection for email delivery
//   - Check: fallback delay, session renewal, fetch timeout
//   - Headless: browser-automation adapter settings
//   - Logging: log format and level
//   - Cron: installed schedule bookkeeping
type Config struct {
	Paths    Paths    `toml:"paths"`
	Delivery Delivery `toml:"delivery"`
	Email    Email    `toml:"email"`
	Check    Check    `toml:"check"`
	Headless Headless `toml:"headless"`
	Logging  Logging  `toml:"logging"`
	Cron     Cron     `toml:"cron"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tosho/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tosho.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store, logger, and
// downloader need. DownloadDir is created best-effort so a check can still
// run when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) != "" {
		_ = os.MkdirAll(c.Paths.DownloadDir, 0o755)
	}
	return nil
}

// StatePath returns the SQLite database location backing the library store.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "library.db")
}

// LockPath returns the lock file guarding against overlapping check cycles.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "check.lock")
}

// EmailConfigured reports whether email delivery has the fields it needs.
func (c *Config) EmailConfigured() bool {
	return strings.TrimSpace(c.Email.KindleAddress) != "" &&
		strings.TrimSpace(c.Email.SenderAddress) != "" &&
		strings.TrimSpace(c.Email.AppPassword) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
