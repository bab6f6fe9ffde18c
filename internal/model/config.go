package model

import "time"

// Config is the complete commentpulse configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	Generative   GenerativeConfig   `yaml:"generative" mapstructure:"generative"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Local        LocalConfig        `yaml:"local" mapstructure:"local"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// GenerativeConfig selects and tunes the generative backend.
type GenerativeConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama, "" (disabled)
	Model           string        `yaml:"model" mapstructure:"model"`
	APIKey          string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"` // per attempt
	Temperature     float64       `yaml:"temperature" mapstructure:"temperature"`
	TopK            int           `yaml:"top_k" mapstructure:"top_k"`
	TopP            float64       `yaml:"top_p" mapstructure:"top_p"`
	MaxOutputTokens int           `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	HTTPProxy       string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy      string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy         string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AnalysisConfig controls retry behavior and method selection.
type AnalysisConfig struct {
	DefaultMethod  Method        `yaml:"default_method" mapstructure:"default_method"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	OverloadUnit   time.Duration `yaml:"overload_unit" mapstructure:"overload_unit"`
	OverloadJitter time.Duration `yaml:"overload_jitter" mapstructure:"overload_jitter"`
	StandardUnit   time.Duration `yaml:"standard_unit" mapstructure:"standard_unit"`
	StandardJitter time.Duration `yaml:"standard_jitter" mapstructure:"standard_jitter"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// LocalConfig selects the local analyzer.
type LocalConfig struct {
	Analyzer          string `yaml:"analyzer" mapstructure:"analyzer"` // keyword, vader, hugot
	ModelPath         string `yaml:"model_path,omitempty" mapstructure:"model_path"`
	ModelName         string `yaml:"model_name,omitempty" mapstructure:"model_name"` // downloaded when model_path is missing
	ToxicityModelPath string `yaml:"toxicity_model_path,omitempty" mapstructure:"toxicity_model_path"`
	ModelDir          string `yaml:"model_dir" mapstructure:"model_dir"`
}

// CacheConfig controls the analysis result cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`

	RedisPassword string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
}

// ConcurrencyConfig sizes the worker pools.
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // local model inference
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"` // files in `batch`
}

// RateLimitingConfig throttles outbound generative calls per backend.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
	// Providers overrides the limit per backend name, e.g. "ollama".
	Providers map[string]ProviderRateLimit `yaml:"providers,omitempty" mapstructure:"providers"`
}

// ProviderRateLimit is one backend's override. A non-positive rate lifts the limit.
type ProviderRateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig configures `serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Debug           bool          `yaml:"debug" mapstructure:"debug"`

	// Per-client limit on the API routes. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Generative: GenerativeConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash-exp",
			Timeout:         45 * time.Second,
			Temperature:     0.3,
			TopK:            20,
			TopP:            0.8,
			MaxOutputTokens: 4096,
		},
		Analysis: AnalysisConfig{
			DefaultMethod:  MethodGenerative,
			MaxRetries:     3,
			OverloadUnit:   3 * time.Second,
			OverloadJitter: 2 * time.Second,
			StandardUnit:   2 * time.Second,
			StandardJitter: time.Second,
			MaxBackoff:     60 * time.Second,
		},
		Local: LocalConfig{
			Analyzer: "keyword",
			ModelDir: "./models",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     24 * time.Hour,
			Dir:     "./.commentpulse-cache",
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			BatchWorkers: 2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1.0,
			BurstSize:         2,
		},
		Server: ServerConfig{
			Addr:              ":5000",
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      5 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
