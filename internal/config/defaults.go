package config

// Default returns the repository defaults prior to normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: "~/Downloads/tosho",
			StateDir:    "~/.local/share/tosho",
			LogDir:      "~/.local/share/tosho/logs",
		},
		Delivery: Delivery{
			Mode:            "local",
			Format:          "pdf",
			DeleteAfterSend: false,
		},
		Email: Email{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
		Check: Check{
			AutoDownload:        false,
			FallbackDelayDays:   2,
			SessionRenewEvery:   3,
			FetchTimeoutSeconds: 60,
			RateLimitMillis:     1000,
		},
		Headless: Headless{
			NavTimeoutSeconds: 45,
			SettleMillis:      2000,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Cron: Cron{
			Enabled: false,
			Time:    "06:00",
		},
	}
}
