package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Library
		Controller
		Sync
		Downloads
		Audit
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Library struct {
		RootDir string // Root of the profiles directory tree
	}
	Controller struct {
		Workers int
	}
	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
	Downloads struct {
		Enabled         bool
		DBPath          string
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		Enabled       bool
		DBPath        string
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("library_root_dir", "./library")
	v.SetDefault("controller_workers", 4)
	v.SetDefault("sync_enabled", false)
	v.SetDefault("sync_schedule", "0 */6 * * *") // Every 6 hours
	v.SetDefault("downloads_enabled", true)
	v.SetDefault("downloads_db_path", "./downloads.db")
	v.SetDefault("download_workers", 2)
	v.SetDefault("download_release_after", "15m")
	v.SetDefault("download_cleanup_interval", "1h")
	v.SetDefault("audit_enabled", true)
	v.SetDefault("audit_db_path", "./audit.db")
	v.SetDefault("audit_retention_days", 30)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Library: Library{
			RootDir: v.GetString("LIBRARY_ROOT_DIR"),
		},
		Controller: Controller{
			Workers: v.GetInt("CONTROLLER_WORKERS"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Downloads: Downloads{
			Enabled:         v.GetBool("DOWNLOADS_ENABLED"),
			DBPath:          v.GetString("DOWNLOADS_DB_PATH"),
			Workers:         v.GetInt("DOWNLOAD_WORKERS"),
			ReleaseAfter:    v.GetDuration("DOWNLOAD_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("DOWNLOAD_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			Enabled:       v.GetBool("AUDIT_ENABLED"),
			DBPath:        v.GetString("AUDIT_DB_PATH"),
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
