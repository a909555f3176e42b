package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides layers environment variables over a loaded Config,
// covering spec.md §6's documented overrides for per-provider API keys and
// history tuning. The config-file path and the web-UI flag are read
// separately, by ConfigFilePathFromEnv and WebUIEnabledFromEnv. Each
// tunable here is fail-open: an unparsable value logs a warning and keeps
// the file's value rather than aborting startup, following the teacher's
// LoadEnv* fallback discipline (internal/pkg/config/loader.go).
func ApplyEnvOverrides(cfg *Config) {
	for provider := range providerEnvKeys {
		if keys := loadEnvKeyList("PODSYNC_TOKENS_" + strings.ToUpper(provider)); len(keys) > 0 {
			if cfg.Tokens == nil {
				cfg.Tokens = map[string][]string{}
			}
			cfg.Tokens[provider] = keys
		}
	}

	cfg.History.Enabled = loadEnvBool("PODSYNC_HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.RetentionDays = loadEnvInt("PODSYNC_HISTORY_RETENTION_DAYS", cfg.History.RetentionDays)
	cfg.History.MaxEntries = loadEnvInt("PODSYNC_HISTORY_MAX_ENTRIES", cfg.History.MaxEntries)
}

// providerEnvKeys names the providers whose API keys can be supplied via
// environment variables instead of (or in addition to) the tokens section.
var providerEnvKeys = map[string]struct{}{
	"youtube":   {},
	"vimeo":     {},
	"soundcloud": {},
	"twitch":    {},
}

// ConfigFilePathFromEnv returns PODSYNC_CONFIG, falling back to def.
func ConfigFilePathFromEnv(def string) string {
	return loadEnvString("PODSYNC_CONFIG", def)
}

// WebUIEnabledFromEnv returns PODSYNC_WEB_UI, falling back to def.
func WebUIEnabledFromEnv(def bool) bool {
	return loadEnvBool("PODSYNC_WEB_UI", def)
}

func loadEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvKeyList splits a space-separated list of API keys, enabling
// rotation (spec.md §9 design note).
func loadEnvKeyList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

func loadEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid env override, falling back", "key", key, "value", v, "default", def, "error", err)
		return def
	}
	return b
}

func loadEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid env override, falling back", "key", key, "value", v, "default", def, "error", err)
		return def
	}
	return n
}
