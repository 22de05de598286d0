package verba

import (
	"fmt"
	"strings"
	"time"

	"github.com/verbalabs/verba/pkg/adapters/rt"
	"github.com/verbalabs/verba/pkg/adapters/stt"
	"github.com/verbalabs/verba/pkg/configutil"
	"github.com/verbalabs/verba/pkg/devices"
	"github.com/verbalabs/verba/pkg/providers/deepgram"
	"github.com/verbalabs/verba/pkg/providers/gemini"
	"github.com/verbalabs/verba/pkg/providers/mock"
)

type RTFactory func(cfg Config, sessionID string) (rt.RealtimeSpeech, error)
type STTFactory func(cfg Config, sessionID string) (stt.StreamingSTT, error)
type SourceFactory func(cfg Config) (devices.Source, error)
type SinkFactory func(cfg Config) (devices.Sink, error)

type ProviderRegistry struct {
	rt      map[string]RTFactory
	stt     map[string]STTFactory
	sources map[string]SourceFactory
	sinks   map[string]SinkFactory
}

func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		rt:      make(map[string]RTFactory),
		stt:     make(map[string]STTFactory),
		sources: make(map[string]SourceFactory),
		sinks:   make(map[string]SinkFactory),
	}
	registerDefaults(r)
	return r
}

func (r *ProviderRegistry) RegisterRT(name string, f RTFactory) {
	r.rt[normalize(name)] = f
}

func (r *ProviderRegistry) RegisterSTT(name string, f STTFactory) {
	r.stt[normalize(name)] = f
}

func (r *ProviderRegistry) RegisterSource(name string, f SourceFactory) {
	r.sources[normalize(name)] = f
}

func (r *ProviderRegistry) RegisterSink(name string, f SinkFactory) {
	r.sinks[normalize(name)] = f
}

func (r *ProviderRegistry) BuildRT(provider string, cfg Config, sessionID string) (rt.RealtimeSpeech, error) {
	f := r.rt[normalize(provider)]
	if f == nil {
		return nil, fmt.Errorf("realtime provider not registered: %s", provider)
	}
	return f(cfg, sessionID)
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config, sessionID string) (stt.StreamingSTT, error) {
	f := r.stt[normalize(provider)]
	if f == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return f(cfg, sessionID)
}

func (r *ProviderRegistry) BuildSource(provider string, cfg Config) (devices.Source, error) {
	f := r.sources[normalize(provider)]
	if f == nil {
		return nil, fmt.Errorf("source provider not registered: %s", provider)
	}
	return f(cfg)
}

func (r *ProviderRegistry) BuildSink(provider string, cfg Config) (devices.Sink, error) {
	f := r.sinks[normalize(provider)]
	if f == nil {
		return nil, fmt.Errorf("sink provider not registered: %s", provider)
	}
	return f(cfg)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func registerDefaults(r *ProviderRegistry) {
	r.RegisterRT("gemini", func(cfg Config, sessionID string) (rt.RealtimeSpeech, error) {
		if err := configutil.ValidateSettings(cfg.Service.Settings, configutil.Schema{
			Optional: []string{"api_key", "endpoint"},
		}); err != nil {
			return nil, fmt.Errorf("service settings: %w", err)
		}
		var gcfg gemini.Config
		if err := configutil.DecodeSettings(cfg.Service.Settings, &gcfg); err != nil {
			return nil, err
		}
		return gemini.New(gcfg), nil
	})
	r.RegisterRT("mock", func(cfg Config, sessionID string) (rt.RealtimeSpeech, error) {
		return mock.NewRT(mock.RTConfig{OpenOnConnect: true}), nil
	})

	r.RegisterSTT("deepgram", func(cfg Config, sessionID string) (stt.StreamingSTT, error) {
		if err := configutil.ValidateSettings(cfg.Captions.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "language", "interim"},
		}); err != nil {
			return nil, fmt.Errorf("captions settings: %w", err)
		}
		var settings struct {
			APIKey   string `mapstructure:"api_key"`
			Model    string `mapstructure:"model"`
			Language string `mapstructure:"language"`
			Interim  bool   `mapstructure:"interim"`
		}
		if err := configutil.DecodeSettings(cfg.Captions.Settings, &settings); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:    settings.APIKey,
			Model:     settings.Model,
			Language:  settings.Language,
			Interim:   settings.Interim,
			SessionID: sessionID,
		}), nil
	})
	r.RegisterSTT("mock", func(cfg Config, sessionID string) (stt.StreamingSTT, error) {
		return mock.NewSTT(mock.STTConfig{SessionID: sessionID}), nil
	})

	r.RegisterSource("tone", func(cfg Config) (devices.Source, error) {
		var settings struct {
			Frequency  float64 `mapstructure:"frequency"`
			Amplitude  float64 `mapstructure:"amplitude"`
			SpeakForS  int     `mapstructure:"speak_for_s"`
			SilentForS int     `mapstructure:"silent_for_s"`
		}
		if err := configutil.DecodeSettings(cfg.Devices.Source.Settings, &settings); err != nil {
			return nil, err
		}
		return devices.NewToneSource(devices.ToneSourceConfig{
			Frequency: settings.Frequency,
			Amplitude: settings.Amplitude,
			SpeakFor:  time.Duration(settings.SpeakForS) * time.Second,
			SilentFor: time.Duration(settings.SilentForS) * time.Second,
		}), nil
	})
	r.RegisterSource("wav", func(cfg Config) (devices.Source, error) {
		var settings struct {
			Path string `mapstructure:"path"`
			Loop bool   `mapstructure:"loop"`
		}
		if err := configutil.DecodeSettings(cfg.Devices.Source.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.Path, "devices.source.settings.path"); err != nil {
			return nil, err
		}
		return devices.NewWAVSource(devices.WAVSourceConfig{
			Path:     settings.Path,
			Realtime: true,
			Loop:     settings.Loop,
		})
	})
	r.RegisterSource("mock", func(cfg Config) (devices.Source, error) {
		return devices.NewMockSource(devices.MockSourceConfig{}), nil
	})

	r.RegisterSink("wav", func(cfg Config) (devices.Sink, error) {
		var settings struct {
			Path string `mapstructure:"path"`
		}
		if err := configutil.DecodeSettings(cfg.Devices.Sink.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.Path, "devices.sink.settings.path"); err != nil {
			return nil, err
		}
		return devices.NewWAVSink(settings.Path, 0), nil
	})
	r.RegisterSink("mock", func(cfg Config) (devices.Sink, error) {
		return devices.NewMockSink(0), nil
	})
}
