package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CheckinSettings are the kiosk knobs staff may tune without a restart.
type CheckinSettings struct {
	DupWindowMinutes int    `mapstructure:"dupWindowMinutes"`
	DefaultDeviceID  string `mapstructure:"defaultDeviceId"`
}

// DupWindow returns the suppression window as a duration.
func (s CheckinSettings) DupWindow() time.Duration {
	return time.Duration(s.DupWindowMinutes) * time.Minute
}

type CheckinSettingsHolder struct {
	current atomic.Value // holds CheckinSettings
}

// NewStaticCheckinSettings returns a holder that never reloads.
func NewStaticCheckinSettings(settings CheckinSettings) *CheckinSettingsHolder {
	holder := &CheckinSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

// NewCheckinSettingsHolder reads checkin.yml when present and keeps watching
// it. Without a file the env-derived defaults are used and never reloaded.
func NewCheckinSettingsHolder(cfg Config, log *zap.Logger) (*CheckinSettingsHolder, error) {
	log = log.Named("config.checkin")
	v := viper.New()

	v.SetConfigName("checkin")
	v.SetConfigType("yml")
	v.AddConfigPath(cfg.Checkin.SettingsPath)
	v.AddConfigPath("/etc/frontdesk")

	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("checkin.dupWindowMinutes", int(cfg.Checkin.DupWindow/time.Minute))
	v.SetDefault("checkin.defaultDeviceId", cfg.Checkin.DefaultDeviceID)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var settings CheckinSettings
	if err := v.UnmarshalKey("checkin", &settings); err != nil {
		return nil, err
	}
	if err := validateCheckinSettings(settings); err != nil {
		return nil, err
	}

	holder := NewStaticCheckinSettings(settings)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CheckinSettings
		if err := v.UnmarshalKey("checkin", &updated); err != nil {
			log.Warn("checkin settings reload failed", zap.Error(err))
			return
		}
		if err := validateCheckinSettings(updated); err != nil {
			log.Warn("invalid checkin settings ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("checkin settings reloaded",
			zap.String("file", e.Name),
			zap.Int("dup_window_minutes", updated.DupWindowMinutes),
			zap.String("default_device_id", updated.DefaultDeviceID),
		)
	})

	return holder, nil
}

func (h *CheckinSettingsHolder) Get() CheckinSettings {
	return h.current.Load().(CheckinSettings)
}

func validateCheckinSettings(s CheckinSettings) error {
	if s.DupWindowMinutes < 0 {
		return errors.New("checkin.dupWindowMinutes cannot be negative")
	}
	if strings.TrimSpace(s.DefaultDeviceID) == "" {
		return errors.New("checkin.defaultDeviceId cannot be empty")
	}
	return nil
}
