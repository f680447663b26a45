package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTemplate is used when no config/<env>.yaml exists, so plain environment variables suffice.
//
//go:embed default.yaml
var defaultTemplate []byte

// Driver names shared by the provider sections.
const (
	DriverOllama = "ollama"
	DriverOpenAI = "openai"
)

// Cache driver names.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheValkey = "valkey"
	CacheRedis  = "redis"
)

// Config holds the ragquery API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	DocumentStore DocumentStoreConfig `yaml:"document_store"`
	Embedding     ProviderConfig      `yaml:"embedding"`
	Generation    ProviderConfig      `yaml:"generation"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Cache         CacheConfig         `yaml:"cache"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// DocumentStoreConfig holds the session document store settings.
type DocumentStoreConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	BearerToken string `yaml:"bearer_token"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// ProviderConfig holds embedding or generation provider settings.
type ProviderConfig struct {
	Driver              string `yaml:"driver"` // ollama, openai (default: ollama)
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	TimeoutSec          int    `yaml:"timeout_sec"`
}

// PipelineConfig holds per-request orchestration settings.
type PipelineConfig struct {
	EmbedConcurrency  int `yaml:"embed_concurrency"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"` // 0 = no deadline beyond the client's
	MaxRetries        int `yaml:"max_retries"`         // 0 = single attempt
	RetryInitialMs    int `yaml:"retry_initial_ms"`
	RetryMaxMs        int `yaml:"retry_max_ms"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, valkey, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	CleanupSec       int      `yaml:"cleanup_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
// Falls back to the embedded default template when no file exists.
func Load(env string) (Config, error) {
	data, err := readConfig(env)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse expands ${VAR} references in raw YAML, then decodes, defaults, and validates it.
func Parse(data []byte) (Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	expandNode(&root)

	var cfg Config
	if err := root.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}

	if c.DocumentStore.BaseURL == "" {
		c.DocumentStore.BaseURL = "http://localhost:8080"
	}
	if c.DocumentStore.TimeoutSec <= 0 {
		c.DocumentStore.TimeoutSec = 10
	}

	applyProviderDefaults(&c.Embedding, "nomic-embed-text", 60)
	applyProviderDefaults(&c.Generation, "mistral", 120)

	if c.Pipeline.EmbedConcurrency <= 0 {
		c.Pipeline.EmbedConcurrency = 8
	}
	if c.Pipeline.RetryInitialMs <= 0 {
		c.Pipeline.RetryInitialMs = 200
	}
	if c.Pipeline.RetryMaxMs <= 0 {
		c.Pipeline.RetryMaxMs = 2000
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "ragquery:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.CleanupSec <= 0 {
		c.Cache.CleanupSec = 10 * 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "ragquery"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}

	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}
}

func applyProviderDefaults(p *ProviderConfig, model string, timeoutSec int) {
	if p.Driver == "" {
		p.Driver = DriverOllama
	}
	if p.BaseURL == "" {
		p.BaseURL = "http://localhost:11434"
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = timeoutSec
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := validateDriver("embedding", c.Embedding.Driver); err != nil {
		return err
	}
	if err := validateDriver("generation", c.Generation.Driver); err != nil {
		return err
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative, got %d", c.Pipeline.MaxRetries)
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
		// ok
	case CacheValkey, CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf(
			"cache.driver must be one of none, memory, valkey, redis, got %q", c.Cache.Driver,
		)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in (0, 1], got %g", c.Tracing.SampleRatio)
	}
	return nil
}

func validateDriver(section, driver string) error {
	switch driver {
	case DriverOllama, DriverOpenAI:
		return nil
	default:
		return fmt.Errorf("%s.driver must be %q or %q, got %q", section, DriverOllama, DriverOpenAI, driver)
	}
}

func readConfig(env string) ([]byte, error) {
	configPath, ok := findConfigPath(env)
	if !ok {
		return defaultTemplate, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return data, nil
}

// findConfigPath locates the config file; ok is false when none exists.
func findConfigPath(env string) (string, bool) {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Explicit override
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path, true
	}

	// 2. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path, true
	}

	// 3. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path, true
	}

	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandNode expands placeholders in every scalar below n. Expansion happens
// after parsing, so environment values never reach the YAML parser.
func expandNode(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode {
		for _, child := range n.Content {
			expandNode(child)
		}
		return
	}
	if !strings.Contains(n.Value, "${") {
		return
	}

	n.Value = expandEnvVars(n.Value)
	if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return
	}

	// Plain scalars re-resolve so ports, counts and flags decode as before.
	n.Tag = ""
	if n.Value != "" && n.ShortTag() == "!!null" {
		n.Tag = "!!str"
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} in s with environment
// variable values. Defaults may nest (${A:-${B:-x}}). Only the template is
// scanned for placeholders: substituted values are inserted verbatim.
func expandEnvVars(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := closingBrace(s, start+2)
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}

		b.WriteString(s[:start])
		varName, defaultVal, hasDefault := strings.Cut(s[start+2:end], ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = expandEnvVars(defaultVal)
		}
		b.WriteString(val)
		s = s[end+1:]
	}
}

// closingBrace returns the index of the brace closing a placeholder whose
// body starts at from, or -1 if it is unterminated.
func closingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "${"):
			depth++
			i++
		case s[i] == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
