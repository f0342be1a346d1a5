package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the CLI and the HTTP service.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string

	RawDir       string
	TracesDir    string
	OutputDir    string
	DomainsDir   string
	BenchmarkDir string
	ResultsDir   string

	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	SummaryCacheTTL time.Duration

	ModelBaseURL   string
	ModelAPIKey    string
	Model          string
	ModelTimeout   time.Duration
	ModelMaxTokens int

	ExecutorKind     string
	DockerHost       string
	ExecutionTimeout time.Duration
	CodeRunMemoryMB  int
	CodeRunCPUShares int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	MinExamples int
	SplitRatio  float64
	TaskType    string
	Version     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ArtifactUploadEnabled reports whether cloudinary credentials are configured.
func (c Config) ArtifactUploadEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"port":          "app.port",
	"log-level":     "log.level",
	"raw-dir":       "data.raw_dir",
	"traces-dir":    "data.traces_dir",
	"output-dir":    "data.output_dir",
	"domains-dir":   "domains_dir",
	"benchmarks":    "benchmark.dir",
	"results-dir":   "benchmark.results_dir",
	"database-url":  "database.url",
	"model":         "model.name",
	"model-url":     "model.base_url",
	"executor":      "executor.kind",
	"min-pairs":     "prepare.min_examples",
	"split-ratio":   "prepare.split_ratio",
	"task-type":     "prepare.task_type",
	"version":       "evaluate.version",
	"exec-timeout":  "execution_timeout_ms",
	"summary-cache": "benchmark.cache_ttl",
}

// Load reads configuration from environment variables (FORGE_ prefix), an optional .env file and, when given, parsed flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FORGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Forge")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.traces_dir", "data/traces")
	v.SetDefault("data.output_dir", "data/datasets")
	v.SetDefault("domains_dir", "domains")
	v.SetDefault("benchmark.dir", "benchmarks")
	v.SetDefault("benchmark.results_dir", "results")
	v.SetDefault("benchmark.cache_ttl", "10m")
	v.SetDefault("database.url", "file:forge.db?_foreign_keys=on")
	v.SetDefault("model.base_url", "http://localhost:11434/v1")
	v.SetDefault("model.timeout", "120s")
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("executor.kind", "process")
	v.SetDefault("execution_timeout_ms", 10000)
	v.SetDefault("code_run_memory_mb", 256)
	v.SetDefault("code_run_cpu_shares", 512)
	v.SetDefault("cloudinary.folder", "forge/datasets")
	v.SetDefault("evaluate.version", "latest")

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	ttl, err := parseDuration(v.GetString("benchmark.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}

	modelTimeout, err := parseDuration(v.GetString("model.timeout"), 120*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid model timeout: %w", err)
	}

	timeoutMs := v.GetInt("execution_timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		RawDir:                 v.GetString("data.raw_dir"),
		TracesDir:              v.GetString("data.traces_dir"),
		OutputDir:              v.GetString("data.output_dir"),
		DomainsDir:             v.GetString("domains_dir"),
		BenchmarkDir:           v.GetString("benchmark.dir"),
		ResultsDir:             v.GetString("benchmark.results_dir"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		SummaryCacheTTL:        ttl,
		ModelBaseURL:           v.GetString("model.base_url"),
		ModelAPIKey:            v.GetString("model.api_key"),
		Model:                  v.GetString("model.name"),
		ModelTimeout:           modelTimeout,
		ModelMaxTokens:         v.GetInt("model.max_tokens"),
		ExecutorKind:           strings.ToLower(v.GetString("executor.kind")),
		DockerHost:             v.GetString("docker_host"),
		ExecutionTimeout:       time.Duration(timeoutMs) * time.Millisecond,
		CodeRunMemoryMB:        v.GetInt("code_run_memory_mb"),
		CodeRunCPUShares:       v.GetInt("code_run_cpu_shares"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		MinExamples:            v.GetInt("prepare.min_examples"),
		SplitRatio:             v.GetFloat64("prepare.split_ratio"),
		TaskType:               strings.ToLower(strings.TrimSpace(v.GetString("prepare.task_type"))),
		Version:                v.GetString("evaluate.version"),
	}

	if cfg.SplitRatio < 0 || cfg.SplitRatio > 1 {
		return Config{}, fmt.Errorf("split ratio must be within (0, 1], got %v", cfg.SplitRatio)
	}

	if cfg.CodeRunMemoryMB <= 0 {
		cfg.CodeRunMemoryMB = 256
	}

	if cfg.CodeRunCPUShares <= 0 {
		cfg.CodeRunCPUShares = 512
	}

	return cfg, nil
}

// RequireJWT fails when the HTTP service would start without a signing secret.
func (c Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided")
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
