package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string          `yaml:"discord_token"`
	DatabaseURL  string          `yaml:"database_url"`
	DatabasePath string          `yaml:"database_path"`
	LogLevel     string          `yaml:"log_level"`
	OwnerID      string          `yaml:"owner_id"`
	Health       HealthConfig    `yaml:"health"`
	Dashboard    DashboardConfig `yaml:"dashboard"`
	XP           XPConfig        `yaml:"xp"`
	AutoMod      AutoModConfig   `yaml:"automod"`
	Mutes        MuteConfig      `yaml:"mutes"`
	Mentions     MentionConfig   `yaml:"mentions"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type DashboardConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	// SessionHours bounds how long a dashboard login stays valid.
	SessionHours int `yaml:"session_hours"`
}

type XPConfig struct {
	MinGain         int `yaml:"min_gain"`
	MaxGain         int `yaml:"max_gain"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

type AutoModConfig struct {
	SpamMessages      int `yaml:"spam_messages"`
	SpamWindowSeconds int `yaml:"spam_window_seconds"`
	NoticeSeconds     int `yaml:"notice_seconds"`
	CleanupSeconds    int `yaml:"cleanup_seconds"`
	IdleWindowSeconds int `yaml:"idle_window_seconds"`
}

type MuteConfig struct {
	SweepSeconds int `yaml:"sweep_seconds"`
}

type MentionConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "data/oblivion.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		Dashboard: DashboardConfig{
			Enabled:      false,
			Addr:         ":3000",
			RedirectURL:  "http://localhost:3000/auth/callback",
			SessionHours: 24,
		},
		XP: XPConfig{MinGain: 15, MaxGain: 25, CooldownSeconds: 60},
		AutoMod: AutoModConfig{
			SpamMessages:      5,
			SpamWindowSeconds: 5,
			NoticeSeconds:     5,
			CleanupSeconds:    60,
			IdleWindowSeconds: 10,
		},
		Mutes:    MuteConfig{SweepSeconds: 30},
		Mentions: MentionConfig{CooldownSeconds: 10},
	}
}

// Load reads CONFIG_PATH (default config.yaml) over the defaults, then loads
// .env into the environment and applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// A missing .env is normal in containers.
	_ = godotenv.Load()

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = normalizeLevel(cfg.LogLevel)
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.XP.MinGain < 0 || c.XP.MaxGain < c.XP.MinGain {
		return fmt.Errorf("invalid xp gain range %d..%d", c.XP.MinGain, c.XP.MaxGain)
	}
	if c.AutoMod.SpamMessages < 1 || c.AutoMod.SpamWindowSeconds < 1 {
		return errors.New("automod spam thresholds must be positive")
	}
	if c.Dashboard.Enabled && (c.Dashboard.ClientID == "" || c.Dashboard.ClientSecret == "") {
		return errors.New("dashboard requires DASHBOARD_CLIENT_ID and DASHBOARD_CLIENT_SECRET")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.OwnerID = envString("BOT_OWNER_ID", cfg.OwnerID)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Dashboard.Enabled = envBool("DASHBOARD_ENABLED", cfg.Dashboard.Enabled)
	cfg.Dashboard.Addr = envString("DASHBOARD_ADDR", cfg.Dashboard.Addr)
	cfg.Dashboard.ClientID = envString("DASHBOARD_CLIENT_ID", cfg.Dashboard.ClientID)
	cfg.Dashboard.ClientSecret = envString("DASHBOARD_CLIENT_SECRET", cfg.Dashboard.ClientSecret)
	cfg.Dashboard.RedirectURL = envString("DASHBOARD_REDIRECT_URL", cfg.Dashboard.RedirectURL)
	cfg.Dashboard.SessionHours = envInt("DASHBOARD_SESSION_HOURS", cfg.Dashboard.SessionHours)
	cfg.XP.MinGain = envInt("XP_MIN_GAIN", cfg.XP.MinGain)
	cfg.XP.MaxGain = envInt("XP_MAX_GAIN", cfg.XP.MaxGain)
	cfg.XP.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.XP.CooldownSeconds)
	cfg.AutoMod.SpamMessages = envInt("SPAM_MESSAGES", cfg.AutoMod.SpamMessages)
	cfg.AutoMod.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.AutoMod.SpamWindowSeconds)
	cfg.Mutes.SweepSeconds = envInt("MUTE_SWEEP_SECONDS", cfg.Mutes.SweepSeconds)
	cfg.Mentions.CooldownSeconds = envInt("MENTION_COOLDOWN_SECONDS", cfg.Mentions.CooldownSeconds)
}

func (c XPConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c MuteConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

func (c MentionConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c DashboardConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionHours) * time.Hour
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c AutoModConfig) SpamWindow() time.Duration { return seconds(c.SpamWindowSeconds) }
func (c AutoModConfig) NoticeTTL() time.Duration  { return seconds(c.NoticeSeconds) }
func (c AutoModConfig) Cleanup() time.Duration    { return seconds(c.CleanupSeconds) }
func (c AutoModConfig) IdleAfter() time.Duration  { return seconds(c.IdleWindowSeconds) }

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(normalizeLevel(level)))
	return cfg.Build()
}

func normalizeLevel(level string) string {
	switch lvl := strings.ToLower(strings.TrimSpace(level)); lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		return "info"
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
