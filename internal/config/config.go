// Package config layers settings from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ExporterOTLP      = "otlp"
	ExporterMultipart = "multipart"
)

type Config struct {
	// LangSmith Config
	LangsmithHost string
	APIKey        string
	Project       string
	// Exporter selects the wire format: "otlp" posts protobuf traces to the
	// OTel endpoint, "multipart" posts zstd run batches to /runs/multipart.
	Exporter     string
	OTLPEndpoint string
	ServiceName  string
	// Bedrock Config
	Region       string
	AgentID      string
	AgentAliasID string
	// Batching Config. Closed spans are buffered until one of the following
	// is met: the batch size, the flush interval, or the uncompressed buffer
	// limit. zstd compression can be extremely effective, so the limit is
	// applied to the uncompressed size.
	BatchSize      int
	FlushInterval  time.Duration
	MaxBufferBytes int
	// Uploader Config
	MaxRetries     int
	BackoffInitial time.Duration
	// Replay Server Config
	Port         string
	MaxBodyBytes int64
}

func Default() Config {
	return Config{
		LangsmithHost:  "https://api.smith.langchain.com",
		Project:        "bedrock-agents",
		Exporter:       ExporterOTLP,
		OTLPEndpoint:   "https://api.smith.langchain.com/otel",
		ServiceName:    "bedrock-agent",
		Region:         "us-east-1",
		BatchSize:      100,
		FlushInterval:  1 * time.Second,
		MaxBufferBytes: 10 * 1024 * 1024, // 10MB
		MaxRetries:     3,
		BackoffInitial: 100 * time.Millisecond,
		Port:           "8080",
		MaxBodyBytes:   20971520, // 20 MB
	}
}

// fileConfig mirrors Config for the YAML overlay. Durations are plain
// millisecond integers so the file stays in line with the env variables.
type fileConfig struct {
	LangsmithHost  *string `yaml:"langsmith_endpoint"`
	APIKey         *string `yaml:"langsmith_api_key"`
	Project        *string `yaml:"langsmith_project"`
	Exporter       *string `yaml:"exporter"`
	OTLPEndpoint   *string `yaml:"otlp_endpoint"`
	ServiceName    *string `yaml:"service_name"`
	Region         *string `yaml:"aws_region"`
	AgentID        *string `yaml:"agent_id"`
	AgentAliasID   *string `yaml:"agent_alias_id"`
	BatchSize      *int    `yaml:"batch_size"`
	FlushIntervalM *int64  `yaml:"flush_interval_ms"`
	MaxBufferBytes *int    `yaml:"max_buffer_bytes"`
	MaxRetries     *int    `yaml:"max_retries"`
	BackoffMs      *int64  `yaml:"retry_backoff_ms"`
	Port           *string `yaml:"http_port"`
	MaxBodyBytes   *int64  `yaml:"max_body_bytes"`
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// Load builds the effective configuration. A malformed CONFIG_FILE is an
// error; a missing one is not unless it was explicitly requested.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.LangsmithHost = env("LANGSMITH_ENDPOINT", cfg.LangsmithHost)
	cfg.APIKey = env("LANGSMITH_API_KEY", cfg.APIKey)
	cfg.Project = env("LANGSMITH_PROJECT", cfg.Project)
	cfg.Exporter = strings.ToLower(env("EXPORTER", cfg.Exporter))
	cfg.OTLPEndpoint = env("LANGSMITH_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = env("SERVICE_NAME", cfg.ServiceName)
	cfg.Region = env("AWS_REGION", cfg.Region)
	cfg.AgentID = env("AGENT_ID", cfg.AgentID)
	cfg.AgentAliasID = env("AGENT_ALIAS_ID", cfg.AgentAliasID)
	cfg.BatchSize = envInt("BATCH_SIZE", cfg.BatchSize)
	cfg.FlushInterval = time.Duration(envInt64("FLUSH_INTERVAL_MS", cfg.FlushInterval.Milliseconds())) * time.Millisecond
	cfg.MaxBufferBytes = envInt("MAX_BUFFER_BYTES", cfg.MaxBufferBytes)
	cfg.MaxRetries = envInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.BackoffInitial = time.Duration(envInt64("RETRY_BACKOFF_MS", cfg.BackoffInitial.Milliseconds())) * time.Millisecond
	cfg.Port = env("HTTP_PORT", cfg.Port)
	cfg.MaxBodyBytes = envInt64("MAX_BODY_BYTES", cfg.MaxBodyBytes)

	if cfg.Exporter != ExporterOTLP && cfg.Exporter != ExporterMultipart {
		return Config{}, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&cfg.LangsmithHost, fc.LangsmithHost)
	setStr(&cfg.APIKey, fc.APIKey)
	setStr(&cfg.Project, fc.Project)
	setStr(&cfg.Exporter, fc.Exporter)
	setStr(&cfg.OTLPEndpoint, fc.OTLPEndpoint)
	setStr(&cfg.ServiceName, fc.ServiceName)
	setStr(&cfg.Region, fc.Region)
	setStr(&cfg.AgentID, fc.AgentID)
	setStr(&cfg.AgentAliasID, fc.AgentAliasID)
	setStr(&cfg.Port, fc.Port)
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.FlushIntervalM != nil {
		cfg.FlushInterval = time.Duration(*fc.FlushIntervalM) * time.Millisecond
	}
	if fc.MaxBufferBytes != nil {
		cfg.MaxBufferBytes = *fc.MaxBufferBytes
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.BackoffMs != nil {
		cfg.BackoffInitial = time.Duration(*fc.BackoffMs) * time.Millisecond
	}
	if fc.MaxBodyBytes != nil {
		cfg.MaxBodyBytes = *fc.MaxBodyBytes
	}
	return nil
}
