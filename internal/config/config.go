// Package config reads the loadkit configuration file and LOADKIT_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/loadkit/pkg/adapters/redis"
	"github.com/aretw0/loadkit/pkg/adapters/url"
	"github.com/aretw0/loadkit/pkg/decode"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "loadkit.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOADKIT_"

// RedisConfig selects the redis journal. An empty Addr keeps the in-memory journal.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string        `mapstructure:"password" yaml:"password" json:"password"`
	DB       int           `mapstructure:"db" yaml:"db" json:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

// Config is the resolved runtime configuration.
type Config struct {
	CharacterSet  string            `mapstructure:"charset" yaml:"charset" json:"charset"`
	LogLevel      string            `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Debug         bool              `mapstructure:"debug" yaml:"debug" json:"debug"`
	Headers       map[string]string `mapstructure:"headers" yaml:"headers" json:"headers"`
	Redis         RedisConfig       `mapstructure:"redis" yaml:"redis" json:"redis"`
	HTTPAddr      string            `mapstructure:"http_addr" yaml:"http_addr" json:"http_addr"`
	Metrics       bool              `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	CancelKeys    bool              `mapstructure:"cancel_keys" yaml:"cancel_keys" json:"cancel_keys"`
	ThumbnailSize int               `mapstructure:"thumbnail_size" yaml:"thumbnail_size" json:"thumbnail_size"`
	URLTimeout    time.Duration     `mapstructure:"url_timeout" yaml:"url_timeout" json:"url_timeout"`
	RedactParams  []string          `mapstructure:"redact_params" yaml:"redact_params" json:"redact_params"`
	// FileRoot confines file loads. serve and mcp refuse file loads while it is empty.
	FileRoot string `mapstructure:"file_root" yaml:"file_root" json:"file_root"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:      "info",
		Redis:         RedisConfig{Prefix: redis.DefaultPrefix},
		HTTPAddr:      ":8080",
		Metrics:       true,
		CancelKeys:    true,
		ThumbnailSize: decode.DefaultPreviewSize,
		URLTimeout:    url.DefaultTimeout,
		RedactParams:  append([]string(nil), middleware.DefaultSensitiveParams...),
	}
}

// Find returns DefaultFile inside dir when it exists, or "".
func Find(dir string) string {
	path := filepath.Join(dir, DefaultFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// Load reads path (skipped when empty), applies the environment and validates the result.
func Load(path string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		var err error
		if raw, err = readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := overlayEnv(raw, os.LookupEnv); err != nil {
		return Config{}, err
	}

	cfg := Default()
	// lists replace their default instead of merging into it
	if _, ok := raw["redact_params"]; ok {
		cfg.RedactParams = nil
	}
	if err := decodeInto(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return raw, nil
	}
	// Default to YAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func decodeInto(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKeys maps the suffix after EnvPrefix to the config path it overrides.
var envKeys = map[string][]string{
	"CHARSET":        {"charset"},
	"LOG_LEVEL":      {"log_level"},
	"DEBUG":          {"debug"},
	"HEADERS":        {"headers"},
	"REDIS_ADDR":     {"redis", "addr"},
	"REDIS_PASSWORD": {"redis", "password"},
	"REDIS_DB":       {"redis", "db"},
	"REDIS_PREFIX":   {"redis", "prefix"},
	"REDIS_TTL":      {"redis", "ttl"},
	"HTTP_ADDR":      {"http_addr"},
	"METRICS":        {"metrics"},
	"CANCEL_KEYS":    {"cancel_keys"},
	"THUMBNAIL_SIZE": {"thumbnail_size"},
	"URL_TIMEOUT":    {"url_timeout"},
	"REDACT_PARAMS":  {"redact_params"},
	"FILE_ROOT":      {"file_root"},
}

func overlayEnv(raw map[string]any, lookup func(string) (string, bool)) error {
	for suffix, path := range envKeys {
		v, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		var value any = v
		if suffix == "HEADERS" {
			headers, err := parseHeaders(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, suffix, err)
			}
			value = headers
		}

		m := raw
		for _, key := range path[:len(path)-1] {
			child, ok := m[key].(map[string]any)
			if !ok {
				child = map[string]any{}
				m[key] = child
			}
			m = child
		}
		m[path[len(path)-1]] = value
	}
	return nil
}

// parseHeaders reads "Name=Value,Other=Value".
func parseHeaders(s string) (map[string]any, error) {
	out := map[string]any{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed header %q", pair)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

// Validate rejects values the runtime cannot use.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if c.ThumbnailSize < 0 {
		errs = append(errs, fmt.Errorf("thumbnail_size must not be negative, got %d", c.ThumbnailSize))
	}
	if c.URLTimeout < 0 {
		errs = append(errs, fmt.Errorf("url_timeout must not be negative, got %s", c.URLTimeout))
	}
	for _, p := range c.RedactParams {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("redact_params: %w", err))
		}
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl must not be negative, got %s", c.Redis.TTL))
	}
	if c.FileRoot != "" {
		if info, err := os.Stat(c.FileRoot); err != nil {
			errs = append(errs, fmt.Errorf("file_root: %w", err))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("file_root: %s is not a directory", c.FileRoot))
		}
	}
	return errors.Join(errs...)
}

// Level is the slog level, forced to debug when Debug is set.
func (c Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	l, _ := c.level()
	return l
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// RequestHeaders returns Headers sorted by name.
func (c Config) RequestHeaders() []domain.Header {
	if len(c.Headers) == 0 {
		return nil
	}
	out := make([]domain.Header, 0, len(c.Headers))
	for name, value := range c.Headers {
		out = append(out, domain.Header{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
