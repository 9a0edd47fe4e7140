package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/spf13/viper"
)

const envPrefix = "LEDGER"

type Settings struct {
	Service   ServiceSettings  `mapstructure:"service"`
	Server    ServerSettings   `mapstructure:"server"`
	Log       LogSettings      `mapstructure:"log"`
	Snapshots SnapshotSettings `mapstructure:"snapshots"`
	Schedule  ScheduleSettings `mapstructure:"schedule"`
}

type ServiceSettings struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	Profile      string        `mapstructure:"profile"`
	ProfilesPath string        `mapstructure:"profiles_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type SnapshotSettings struct {
	DSN string `mapstructure:"dsn"`
}

type ScheduleSettings struct {
	Cron     string           `mapstructure:"cron"`
	Timezone string           `mapstructure:"timezone"`
	Entities []EntitySettings `mapstructure:"entities"`
}

type EntitySettings struct {
	Kind        string   `mapstructure:"kind"`
	ID          string   `mapstructure:"id"`
	Bookings    []string `mapstructure:"bookings"`
	QuotationID string   `mapstructure:"quotation_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.base_url", "")
	v.SetDefault("service.token", "")
	v.SetDefault("service.profile", "")
	v.SetDefault("service.profiles_path", "")
	v.SetDefault("service.timeout", 30*time.Second)
	v.SetDefault("service.retry_max", 2)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("snapshots.dsn", "")
	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.entities", []EntitySettings{})
}

// Load reads settings from the optional config file and LEDGER_* environment
// variables, the latter taking precedence.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

// ResolveCredentials fills the service address and token from the credential
// profile when they are not configured directly.
func (s *Settings) ResolveCredentials(ctx context.Context) error {
	if s.Service.Profile != "" && (s.Service.BaseURL == "" || s.Service.Token == "") {
		path := s.Service.ProfilesPath
		if path == "" {
			var err error
			if path, err = DefaultProfilesPath(); err != nil {
				return err
			}
		}

		registry, err := NewRegistry(path)
		if err != nil {
			return err
		}
		creds, err := registry.GetCredentials(ctx, s.Service.Profile)
		if err != nil {
			return err
		}
		if s.Service.BaseURL == "" {
			s.Service.BaseURL = creds.Host
		}
		if s.Service.Token == "" {
			s.Service.Token = creds.Token
		}
	}

	if s.Service.BaseURL == "" {
		return fmt.Errorf("ledger service base url is not configured (service.base_url or a credential profile)")
	}
	return nil
}

// ScheduledEntities converts the configured portfolio into domain entities.
func (s *Settings) ScheduledEntities() ([]domain.Entity, error) {
	entities := make([]domain.Entity, 0, len(s.Schedule.Entities))
	for i, e := range s.Schedule.Entities {
		kind, err := domain.ParseEntityKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("schedule.entities[%d]: %w", i, err)
		}
		id := strings.TrimSpace(e.ID)
		if id == "" && len(e.Bookings) == 0 {
			return nil, fmt.Errorf("schedule.entities[%d]: id or bookings required", i)
		}
		entities = append(entities, domain.Entity{
			Kind:        kind,
			ID:          id,
			BookingIDs:  e.Bookings,
			QuotationID: strings.TrimSpace(e.QuotationID),
		})
	}
	return entities, nil
}

func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
