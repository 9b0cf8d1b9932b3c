package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Auth
		Library
		GuestCache
		Scheduler
		Tasks
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text or json
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Failed attempts before lockout (default: 5)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		SessionRatePerMinute int // Guest sessions and registrations per client IP (default: 30)
		SessionRateBurst     int // (default: 10)
	}
	Library struct {
		GuestMaxItems     int           // Books a guest may keep across all collections (default: 7)
		PositionDebounce  time.Duration // Write-back window for reading positions (default: 1s)
		ClientIdleTimeout time.Duration // Idle client sessions are released after this (default: 30m)
	}
	GuestCache struct {
		Path          string
		RetentionDays int    // Guest libraries untouched for this long are purged (default: 90)
		PurgeSchedule string // Cron format: "0 3 * * *" = nightly at 03:00
	}
	Scheduler struct {
		Enabled       bool
		SweepSchedule string // Cron format: "*/10 * * * *" = every 10 minutes
	}
	Audit struct {
		RetentionDays   int    // Activity older than this is removed (default: 180)
		CleanupSchedule string // Cron format: "30 3 * * *" = nightly at 03:30
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string
		Workers         int
		MaxRetries      int
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_token_expiry", "720h")    // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_session_rate_per_minute", 30)
	v.SetDefault("auth_session_rate_burst", 10)

	// Library defaults
	v.SetDefault("library_guest_max_items", 7)
	v.SetDefault("library_position_debounce", "1s")
	v.SetDefault("library_client_idle_timeout", "30m")

	v.SetDefault("guest_cache_path", DefaultGuestCachePath)
	v.SetDefault("guest_cache_retention_days", 90)
	v.SetDefault("guest_cache_purge_schedule", "0 3 * * *")

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_sweep_schedule", "*/10 * * * *")

	v.SetDefault("audit_retention_days", 180)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),

			SessionRatePerMinute: v.GetInt("AUTH_SESSION_RATE_PER_MINUTE"),
			SessionRateBurst:     v.GetInt("AUTH_SESSION_RATE_BURST"),
		},
		Library: Library{
			GuestMaxItems:     v.GetInt("LIBRARY_GUEST_MAX_ITEMS"),
			PositionDebounce:  v.GetDuration("LIBRARY_POSITION_DEBOUNCE"),
			ClientIdleTimeout: v.GetDuration("LIBRARY_CLIENT_IDLE_TIMEOUT"),
		},
		GuestCache: GuestCache{
			Path:          v.GetString("GUEST_CACHE_PATH"),
			RetentionDays: v.GetInt("GUEST_CACHE_RETENTION_DAYS"),
			PurgeSchedule: v.GetString("GUEST_CACHE_PURGE_SCHEDULE"),
		},
		Scheduler: Scheduler{
			Enabled:       v.GetBool("SCHEDULER_ENABLED"),
			SweepSchedule: v.GetString("SCHEDULER_SWEEP_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			MaxRetries:      v.GetInt("TASK_MAX_RETRIES"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
