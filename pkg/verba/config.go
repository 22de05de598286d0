package verba

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/verbalabs/verba/pkg/exam"
)

type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Exam          exam.Persona        `mapstructure:"exam"`
	Devices       DevicesConfig       `mapstructure:"devices"`
	Service       VendorConfig        `mapstructure:"service"`
	Captions      CaptionsConfig      `mapstructure:"captions"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
}

type EngineConfig struct {
	Model string `mapstructure:"model"`
	Voice string `mapstructure:"voice"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type DevicesConfig struct {
	Source VendorConfig `mapstructure:"source"`
	Sink   VendorConfig `mapstructure:"sink"`
}

type CaptionsConfig struct {
	Enabled          bool           `mapstructure:"enabled"`
	Provider         string         `mapstructure:"provider"`
	Settings         map[string]any `mapstructure:"settings"`
	ConnectRetries   int            `mapstructure:"connect_retries"`
	ConnectBackoffMS int            `mapstructure:"connect_backoff_ms"`
	BreakerThreshold int            `mapstructure:"breaker_threshold"`
	BreakerCooldownS int            `mapstructure:"breaker_cooldown_s"`
}

type SessionConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type ObservabilityConfig struct {
	ArtifactsDir      string  `mapstructure:"artifacts_dir"`
	RecordAudio       bool    `mapstructure:"record_audio"`
	RecordPath        string  `mapstructure:"record_path"`
	RetentionDays     int     `mapstructure:"retention_days"`
	MetricsSampleRate float64 `mapstructure:"metrics_sample_rate"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("engine.model", "models/gemini-2.0-flash-live-001")
	v.SetDefault("engine.voice", exam.DefaultVoice)
	v.SetDefault("exam.language", "English")
	v.SetDefault("devices.source.provider", "tone")
	v.SetDefault("devices.sink.provider", "mock")
	v.SetDefault("service.provider", "gemini")
	v.SetDefault("captions.enabled", false)
	v.SetDefault("captions.provider", "deepgram")
	v.SetDefault("captions.connect_retries", 2)
	v.SetDefault("captions.connect_backoff_ms", 200)
	v.SetDefault("captions.breaker_threshold", 3)
	v.SetDefault("captions.breaker_cooldown_s", 30)
	v.SetDefault("session.queue_size", 32)
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.record_audio", false)
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.metrics_sample_rate", 1.0)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.Provider) == "" {
		return fmt.Errorf("service.provider is required")
	}
	if strings.TrimSpace(c.Devices.Source.Provider) == "" {
		return fmt.Errorf("devices.source.provider is required")
	}
	if c.Captions.Enabled && strings.TrimSpace(c.Captions.Provider) == "" {
		return fmt.Errorf("captions.provider is required when captions are enabled")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Service.Settings = expandSettings(cfg.Service.Settings)
	cfg.Captions.Settings = expandSettings(cfg.Captions.Settings)
	cfg.Devices.Source.Settings = expandSettings(cfg.Devices.Source.Settings)
	cfg.Devices.Sink.Settings = expandSettings(cfg.Devices.Sink.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
