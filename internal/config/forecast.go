package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// OutflowBucket describes one due-date range of the cash-outflow forecast.
// MaxDays nil means the bucket is open-ended.
type OutflowBucket struct {
	Label   string `mapstructure:"label" json:"label"`
	MinDays int    `mapstructure:"minDays" json:"min_days"`
	MaxDays *int   `mapstructure:"maxDays" json:"max_days,omitempty"`
}

// ForecastConfig controls cash-outflow bucketing.
type ForecastConfig struct {
	Buckets []OutflowBucket `mapstructure:"buckets"`
	// DefaultTermDays is applied when an invoice has no payment record.
	DefaultTermDays int `mapstructure:"defaultTermDays"`
}

func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Buckets: []OutflowBucket{
			{Label: "0-7 days", MinDays: 0, MaxDays: intPtr(7)},
			{Label: "8-30 days", MinDays: 8, MaxDays: intPtr(30)},
			{Label: "31-60 days", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "60+ days", MinDays: 61, MaxDays: nil},
		},
		DefaultTermDays: 30,
	}
}

func intPtr(v int) *int { return &v }

// ForecastConfigHolder serves the current forecast configuration and
// hot-reloads it when the underlying file changes.
type ForecastConfigHolder struct {
	current atomic.Value // holds ForecastConfig
}

func NewForecastConfigHolder() (*ForecastConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("forecast")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/spendsight/config")
	v.AddConfigPath("/etc/spendsight")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SPENDSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := DefaultForecastConfig()
	if fileFound {
		if err := v.UnmarshalKey("forecast", &cfg); err != nil {
			return nil, err
		}
		if err := validateForecastConfig(cfg); err != nil {
			return nil, err
		}
	}

	holder := &ForecastConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ForecastConfig
			if err := v.UnmarshalKey("forecast", &updated); err != nil {
				log.Printf("[forecast-config] reload failed: %v", err)
				return
			}
			if err := validateForecastConfig(updated); err != nil {
				log.Printf("[forecast-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[forecast-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// NewStaticForecastHolder wraps a fixed configuration, for tests and the
// ingest command.
func NewStaticForecastHolder(cfg ForecastConfig) *ForecastConfigHolder {
	holder := &ForecastConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ForecastConfigHolder) Get() ForecastConfig {
	return h.current.Load().(ForecastConfig)
}

func validateForecastConfig(cfg ForecastConfig) error {
	if len(cfg.Buckets) == 0 {
		return errors.New("forecast.buckets cannot be empty")
	}
	if cfg.DefaultTermDays <= 0 {
		return errors.New("forecast.defaultTermDays must be positive")
	}
	for _, b := range cfg.Buckets {
		if strings.TrimSpace(b.Label) == "" {
			return errors.New("forecast.buckets entries require a label")
		}
		if b.MaxDays != nil && *b.MaxDays < b.MinDays {
			return errors.New("forecast.buckets range is inverted")
		}
	}
	return nil
}
