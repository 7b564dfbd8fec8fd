package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Headless.BrowserBin != "" {
		if c.Headless.BrowserBin, err = expandPath(c.Headless.BrowserBin); err != nil {
			return err
		}
	}

	c.Delivery.Mode = strings.ToLower(strings.TrimSpace(c.Delivery.Mode))
	if c.Delivery.Mode == "" {
		c.Delivery.Mode = "local"
	}
	c.Delivery.Format = strings.ToLower(strings.TrimSpace(c.Delivery.Format))
	if c.Delivery.Format == "" {
		c.Delivery.Format = "pdf"
	}

	c.Email.KindleAddress = strings.TrimSpace(c.Email.KindleAddress)
	c.Email.SenderAddress = strings.TrimSpace(c.Email.SenderAddress)
	c.Email.SMTPServer = strings.TrimSpace(c.Email.SMTPServer)
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}

	if c.Check.FallbackDelayDays < 0 {
		return fmt.Errorf("check.fallback_delay_days must not be negative")
	}
	if c.Check.SessionRenewEvery <= 0 {
		c.Check.SessionRenewEvery = 3
	}
	if c.Check.FetchTimeoutSeconds <= 0 {
		c.Check.FetchTimeoutSeconds = 60
	}
	if c.Check.RateLimitMillis < 0 {
		c.Check.RateLimitMillis = 0
	}

	if c.Headless.NavTimeoutSeconds <= 0 {
		c.Headless.NavTimeoutSeconds = 45
	}
	if c.Headless.SettleMillis < 0 {
		c.Headless.SettleMillis = 0
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
