package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		UI
		Covers
		Session
		Maintenance
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Covers struct {
		Dir          string // Directory uploaded cover files are written to
		PublicPath   string // URL prefix cover files are served under
		MaxUploadMB  int64
		AllowedTypes []string // MIME allow-list; uploads outside it are dropped
	}
	Session struct {
		Secret        string
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Maintenance struct {
		CoverCleanupEnabled  bool
		CoverCleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8144)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", "./shelfmark.db")
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Cover storage defaults
	v.SetDefault("covers_dir", "./data/covers")
	v.SetDefault("covers_public_path", "/covers")
	v.SetDefault("cover_max_upload_mb", 10)
	v.SetDefault("cover_allowed_types", "image/jpeg,image/png,image/gif")

	// Session defaults
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("secure_cookies", false)

	// Maintenance defaults
	v.SetDefault("cover_cleanup_enabled", true)
	v.SetDefault("cover_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Covers: Covers{
			Dir:          v.GetString("COVERS_DIR"),
			PublicPath:   v.GetString("COVERS_PUBLIC_PATH"),
			MaxUploadMB:  v.GetInt64("COVER_MAX_UPLOAD_MB"),
			AllowedTypes: splitTypes(v.GetString("COVER_ALLOWED_TYPES")),
		},
		Session: Session{
			Secret:        v.GetString("SESSION_SECRET"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SECURE_COOKIES"),
		},
		Maintenance: Maintenance{
			CoverCleanupEnabled:  v.GetBool("COVER_CLEANUP_ENABLED"),
			CoverCleanupSchedule: v.GetString("COVER_CLEANUP_SCHEDULE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}

func splitTypes(raw string) []string {
	var types []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			types = append(types, t)
		}
	}
	return types
}
