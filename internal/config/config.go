package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// Defaults for session continuation.
const (
	DefaultSessionSaveInterval      = 3
	DefaultSessionStateMaxChars     = 6000
	DefaultSummarizerTimeoutSeconds = 120
	DefaultEmbeddingDims            = 512
)

// Config holds application configuration.
type Config struct {
	// SessionContinuationEnabled is the master switch for both capture and recall.
	SessionContinuationEnabled bool `json:"session_continuation_enabled,omitempty"`

	// SessionSaveInterval is the turn-count modulus controlling capture frequency.
	SessionSaveInterval int `json:"session_save_interval,omitempty"`

	// SessionStateMaxChars is the transcript tail length fed to the summarizer.
	SessionStateMaxChars int `json:"session_state_max_chars,omitempty"`

	// SummarizerProvider selects the summarization backend: "openai", "anthropic" or "none".
	SummarizerProvider string `json:"summarizer_provider,omitempty"`

	// SummarizerModel is the chat model used for summarization.
	SummarizerModel string `json:"summarizer_model,omitempty"`

	// UtilityModel, when set, replaces SummarizerModel for background summarization calls.
	UtilityModel string `json:"utility_model,omitempty"`

	// SummarizerTimeoutSeconds bounds a single summarization call.
	SummarizerTimeoutSeconds int `json:"summarizer_timeout_seconds,omitempty"`

	// Embedder selects the embedding backend: "hash" (offline, default) or "openai".
	Embedder string `json:"embedder,omitempty"`

	// EmbeddingModel is the remote embedding model (openai embedder only).
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// EmbeddingDims is the vector width. For the hash embedder it is the bucket count.
	EmbeddingDims int `json:"embedding_dims,omitempty"`

	// OpenAIAPIKey and OpenAIBaseURL configure the OpenAI client.
	// Usually supplied via OPENAI_API_KEY / OPENAI_BASE_URL instead of the file.
	OpenAIAPIKey  string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	// AnthropicAPIKey configures the Anthropic client (or ANTHROPIC_API_KEY).
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths lists extra directories export and import may touch.
	// Only absolute paths are honored. ~/.carryon/exports is always allowed.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on export and import.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes excludes whole tool groups by prefix ("state", "store").
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format,omitempty"`
}

// DefaultConfig returns the default configuration.
// Session continuation is off until explicitly enabled.
func DefaultConfig() *Config {
	return &Config{
		SessionSaveInterval:      DefaultSessionSaveInterval,
		SessionStateMaxChars:     DefaultSessionStateMaxChars,
		SummarizerProvider:       "none",
		SummarizerModel:          "gpt-4o-mini",
		SummarizerTimeoutSeconds: DefaultSummarizerTimeoutSeconds,
		Embedder:                 "hash",
		EmbeddingModel:           "text-embedding-3-small",
		EmbeddingDims:            DefaultEmbeddingDims,
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.carryon.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.carryon) and repo (.carryon) directories.
// Repo config is found by walking upward from startDir to find the nearest .carryon/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .carryon/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".carryon", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Comments and trailing commas are allowed (JSONC).
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.SessionSaveInterval = firstInt(overlay.SessionSaveInterval, base.SessionSaveInterval)
	result.SessionStateMaxChars = firstInt(overlay.SessionStateMaxChars, base.SessionStateMaxChars)
	result.SummarizerTimeoutSeconds = firstInt(overlay.SummarizerTimeoutSeconds, base.SummarizerTimeoutSeconds)
	result.EmbeddingDims = firstInt(overlay.EmbeddingDims, base.EmbeddingDims)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.SummarizerProvider = firstString(overlay.SummarizerProvider, base.SummarizerProvider)
	result.SummarizerModel = firstString(overlay.SummarizerModel, base.SummarizerModel)
	result.UtilityModel = firstString(overlay.UtilityModel, base.UtilityModel)
	result.Embedder = firstString(overlay.Embedder, base.Embedder)
	result.EmbeddingModel = firstString(overlay.EmbeddingModel, base.EmbeddingModel)
	result.OpenAIAPIKey = firstString(overlay.OpenAIAPIKey, base.OpenAIAPIKey)
	result.OpenAIBaseURL = firstString(overlay.OpenAIBaseURL, base.OpenAIBaseURL)
	result.AnthropicAPIKey = firstString(overlay.AnthropicAPIKey, base.AnthropicAPIKey)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstString(overlay.LogFormat, base.LogFormat)

	// Booleans: overlay wins if true, else base
	result.SessionContinuationEnabled = base.SessionContinuationEnabled || overlay.SessionContinuationEnabled
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("CARRYON_SESSION_CONTINUATION_ENABLED"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.SessionContinuationEnabled = b
		}
	}
	if v, ok := lookupInt(lookup, "CARRYON_SESSION_SAVE_INTERVAL"); ok {
		cfg.SessionSaveInterval = v
	}
	if v, ok := lookupInt(lookup, "CARRYON_SESSION_STATE_MAX_CHARS"); ok {
		cfg.SessionStateMaxChars = v
	}
	if v, ok := lookup("CARRYON_SUMMARIZER_PROVIDER"); ok && v != "" {
		cfg.SummarizerProvider = v
	}
	if v, ok := lookup("CARRYON_SUMMARIZER_MODEL"); ok && v != "" {
		cfg.SummarizerModel = v
	}
	if v, ok := lookup("CARRYON_EMBEDDER"); ok && v != "" {
		cfg.Embedder = v
	}
	if v, ok := lookup("CARRYON_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" && cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok && v != "" && cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = v
	}
	if v, ok := lookup("ANTHROPIC_API_KEY"); ok && v != "" && cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = v
	}
}

func lookupInt(lookup func(string) (string, bool), key string) (int, bool) {
	v, ok := lookup(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
