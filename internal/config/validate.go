package config

import (
	"fmt"
	"regexp"
	"strings"
)

var cronTimePattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	switch c.Delivery.Mode {
	case "local", "email":
	default:
		return fmt.Errorf("delivery.mode: unsupported value %q (expected \"local\" or \"email\")", c.Delivery.Mode)
	}

	switch c.Delivery.Format {
	case "pdf", "epub":
	default:
		return fmt.Errorf("delivery.format: unsupported value %q (expected \"pdf\" or \"epub\")", c.Delivery.Format)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected \"console\" or \"json\")", c.Logging.Format)
	}

	if c.Delivery.Mode == "email" {
		if c.Email.KindleAddress == "" {
			return fmt.Errorf("email.kindle_address is required when delivery.mode is \"email\"")
		}
		if c.Email.SenderAddress == "" {
			return fmt.Errorf("email.sender_address is required when delivery.mode is \"email\"")
		}
		if !strings.Contains(c.Email.KindleAddress, "@") {
			return fmt.Errorf("email.kindle_address: %q is not an email address", c.Email.KindleAddress)
		}
		if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
			return fmt.Errorf("email.smtp_port: %d is out of range", c.Email.SMTPPort)
		}
	}

	if c.Cron.Time != "" && !cronTimePattern.MatchString(c.Cron.Time) {
		return fmt.Errorf("cron.time: %q is not HH:MM", c.Cron.Time)
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return fmt.Errorf("paths.state_dir must not be empty")
	}

	return nil
}
