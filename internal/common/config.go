package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	OCR         OCRConfig     `toml:"ocr"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Claude      ClaudeConfig  `toml:"claude"`
	LLM         LLMConfig     `toml:"llm"`
	Notify      NotifyConfig  `toml:"notifications"`
	RateLimits  map[string]int `toml:"rate_limits"` // route name -> requests/sec
	Audit       AuditConfig   `toml:"audit"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FilesystemConfig locates the on-disk staging area for uploaded documents.
type FilesystemConfig struct {
	Uploads string `toml:"uploads"` // Directory holding submitted files pending/under processing
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level published to the notification fabric
}

// SchedulerConfig governs the Batch Scheduler's admission and concurrency
// policy (§4.1, §6.3).
type SchedulerConfig struct {
	WorkerPoolSize      int             `toml:"worker_pool_size"`      // Max concurrent files across all batches (default 10)
	ChunkSize           int             `toml:"chunk_size"`            // PDF pages per chunk (default 8)
	ChunkOverlap        int             `toml:"chunk_overlap"`         // Page overlap between chunks (default 1)
	MaxFilesPerBatch    int             `toml:"max_files_per_batch"`   // Upload admission cap (default 50)
	MaxArchiveFiles     int             `toml:"max_archive_files"`     // Archive-expanded cap (default 100)
	ArchiveAllowedTypes []string        `toml:"archive_allowed_types"` // Document types accepted via archive submission
	MaxFileBytes        int64           `toml:"max_file_bytes"`        // Per-file size cap (default 50 MB)
	StaleAfterSeconds   int             `toml:"stale_after_seconds"`   // Crash-recovery: files "processing" longer than this are resumed
}

// OCRConfig selects and configures the OCR Router (§4.5).
type OCRConfig struct {
	Mode             string `toml:"mode"`              // cloud_primary | cloud_only | local_primary | local_only
	Endpoint         string `toml:"endpoint"`          // Cloud OCR API endpoint
	Project          string `toml:"project"`           // Cloud OCR project ID
	ProcessorID      string `toml:"processor_id"`      // Cloud OCR processor ID
	CredentialsPath  string `toml:"credentials_path"`  // Path to cloud OCR service-account credentials
	RequestTimeout   time.Duration `toml:"request_timeout"` // Per-page OCR request timeout
}

// GeminiConfig contains Google Gemini API configuration, used as the bank
// statement extractor (provider B) per §4.6.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Endpoint    string  `toml:"endpoint"`
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s")
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration, used as the tax
// document extractor (provider A) per §4.6.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Endpoint    string  `toml:"endpoint"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider names a Smart Mapper backend.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig assigns providers to the two extraction lanes described in
// §4.6: tax documents route to provider A, bank statements to provider B.
type LLMConfig struct {
	TaxDocProvider   LLMProvider `toml:"tax_doc_provider"`   // default: claude
	BankStmtProvider LLMProvider `toml:"bank_stmt_provider"` // default: gemini
}

// NotifyConfig governs the Notification Fabric's session lifecycle (§4.10).
type NotifyConfig struct {
	SessionIdleTimeoutS   int `toml:"session_idle_timeout_s"`   // Idle session reap threshold (default 300s)
	SessionPingIntervalS  int `toml:"session_ping_interval_s"`  // Heartbeat ping interval (default 30s)
	SendQueueDepth        int `toml:"send_queue_depth"`         // Per-session bounded outbound queue depth (default 64)
}

// AuditConfig locates the append-only audit log (§6.4).
type AuditConfig struct {
	LogPath string `toml:"log_path"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in the config file.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Uploads: "./data/uploads",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Scheduler: SchedulerConfig{
			WorkerPoolSize:      10,
			ChunkSize:           8,
			ChunkOverlap:        1,
			MaxFilesPerBatch:    50,
			MaxArchiveFiles:     100,
			ArchiveAllowedTypes: []string{"faktur_pajak", "pph21", "pph23"},
			MaxFileBytes:        50 * 1024 * 1024, // 50 MB
			StaleAfterSeconds:   300,
		},
		OCR: OCRConfig{
			Mode:           "cloud_primary",
			RequestTimeout: 60 * time.Second,
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.5-flash",
			Timeout:     "5m",
			RateLimit:   "4s",
			Temperature: 0.2, // Low temperature: structured extraction, not conversation
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			TaxDocProvider:   LLMProviderClaude,
			BankStmtProvider: LLMProviderGemini,
		},
		Notify: NotifyConfig{
			SessionIdleTimeoutS:  300,
			SessionPingIntervalS: 30,
			SendQueueDepth:       64,
		},
		RateLimits: map[string]int{
			"submit_batch": 5,
			"export":       10,
		},
		Audit: AuditConfig{
			LogPath: "./data/audit.log",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
// kvStorage can be nil (replacement will be skipped).
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files. kvStorage can be nil (replacement will be skipped).
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			} else {
				logger.Info().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
			}
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TAXPIPELINE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("TAXPIPELINE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TAXPIPELINE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("TAXPIPELINE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uploadsDir := os.Getenv("TAXPIPELINE_UPLOADS_DIR"); uploadsDir != "" {
		config.Storage.Filesystem.Uploads = uploadsDir
	}

	if level := os.Getenv("TAXPIPELINE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("TAXPIPELINE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("TAXPIPELINE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Scheduler configuration
	if wps := os.Getenv("TAXPIPELINE_WORKER_POOL_SIZE"); wps != "" {
		if v, err := strconv.Atoi(wps); err == nil {
			config.Scheduler.WorkerPoolSize = v
		}
	}
	if cs := os.Getenv("TAXPIPELINE_CHUNK_SIZE"); cs != "" {
		if v, err := strconv.Atoi(cs); err == nil {
			config.Scheduler.ChunkSize = v
		}
	}
	if co := os.Getenv("TAXPIPELINE_CHUNK_OVERLAP"); co != "" {
		if v, err := strconv.Atoi(co); err == nil {
			config.Scheduler.ChunkOverlap = v
		}
	}
	if mfb := os.Getenv("TAXPIPELINE_MAX_FILES_PER_BATCH"); mfb != "" {
		if v, err := strconv.Atoi(mfb); err == nil {
			config.Scheduler.MaxFilesPerBatch = v
		}
	}
	if maf := os.Getenv("TAXPIPELINE_MAX_ARCHIVE_FILES"); maf != "" {
		if v, err := strconv.Atoi(maf); err == nil {
			config.Scheduler.MaxArchiveFiles = v
		}
	}
	if mfbytes := os.Getenv("TAXPIPELINE_MAX_FILE_BYTES"); mfbytes != "" {
		if v, err := strconv.ParseInt(mfbytes, 10, 64); err == nil {
			config.Scheduler.MaxFileBytes = v
		}
	}

	// OCR configuration
	if mode := os.Getenv("TAXPIPELINE_OCR_MODE"); mode != "" {
		config.OCR.Mode = mode
	}
	if endpoint := os.Getenv("TAXPIPELINE_OCR_ENDPOINT"); endpoint != "" {
		config.OCR.Endpoint = endpoint
	}
	if project := os.Getenv("TAXPIPELINE_OCR_PROJECT"); project != "" {
		config.OCR.Project = project
	}
	if processorID := os.Getenv("TAXPIPELINE_OCR_PROCESSOR_ID"); processorID != "" {
		config.OCR.ProcessorID = processorID
	}
	if credsPath := os.Getenv("TAXPIPELINE_OCR_CREDENTIALS_PATH"); credsPath != "" {
		config.OCR.CredentialsPath = credsPath
	}

	// Gemini configuration (bank statement extractor, provider B)
	if apiKey := os.Getenv("TAXPIPELINE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("TAXPIPELINE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("TAXPIPELINE_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("TAXPIPELINE_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("TAXPIPELINE_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration (tax document extractor, provider A)
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("TAXPIPELINE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // TAXPIPELINE_ prefix takes priority
	}
	if model := os.Getenv("TAXPIPELINE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("TAXPIPELINE_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("TAXPIPELINE_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("TAXPIPELINE_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("TAXPIPELINE_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider assignment
	if provider := os.Getenv("TAXPIPELINE_TAX_DOC_PROVIDER"); provider != "" {
		config.LLM.TaxDocProvider = LLMProvider(provider)
	}
	if provider := os.Getenv("TAXPIPELINE_BANK_STMT_PROVIDER"); provider != "" {
		config.LLM.BankStmtProvider = LLMProvider(provider)
	}

	// Notification fabric configuration
	if idle := os.Getenv("TAXPIPELINE_SESSION_IDLE_TIMEOUT_S"); idle != "" {
		if v, err := strconv.Atoi(idle); err == nil {
			config.Notify.SessionIdleTimeoutS = v
		}
	}
	if ping := os.Getenv("TAXPIPELINE_SESSION_PING_INTERVAL_S"); ping != "" {
		if v, err := strconv.Atoi(ping); err == nil {
			config.Notify.SessionPingIntervalS = v
		}
	}

	// Audit configuration
	if path := os.Getenv("TAXPIPELINE_AUDIT_LOG_PATH"); path != "" {
		config.Audit.LogPath = path
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable
// priority. Resolution order: environment variables -> KV store -> config
// fallback -> error. This ensures TAXPIPELINE_* environment variables
// always take precedence.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"TAXPIPELINE_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"google_api_key":    {"TAXPIPELINE_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"TAXPIPELINE_CLAUDE_API_KEY"},
		"claude_api_key":    {"TAXPIPELINE_CLAUDE_API_KEY"},
	}

	// For Claude, also check the standard ANTHROPIC_API_KEY env var
	if name == "anthropic_api_key" || name == "claude_api_key" {
		if envValue := os.Getenv("ANTHROPIC_API_KEY"); envValue != "" {
			return envValue, nil
		}
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// Helper functions for string manipulation (kept dependency-free: these run
// before the logger/config are available).
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct. Used by
// components that must hand out a config snapshot without exposing the
// live pointer to mutation.
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.Scheduler.ArchiveAllowedTypes) > 0 {
		clone.Scheduler.ArchiveAllowedTypes = make([]string, len(c.Scheduler.ArchiveAllowedTypes))
		copy(clone.Scheduler.ArchiveAllowedTypes, c.Scheduler.ArchiveAllowedTypes)
	}

	if len(c.RateLimits) > 0 {
		clone.RateLimits = make(map[string]int, len(c.RateLimits))
		for k, v := range c.RateLimits {
			clone.RateLimits[k] = v
		}
	}

	return &clone
}
