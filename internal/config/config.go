package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "geoanchor.cfg.json"

// ErrUnknownAltitudeType is returned for an anchor whose altitudeType is not
// manual, terrain or rooftop.
var ErrUnknownAltitudeType = errors.New("unknown altitude type")

// ErrUnknownMode is returned when mode is neither live nor authoring.
var ErrUnknownMode = errors.New("unknown mode")

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./geoanchorlogs")
	viper.SetDefault("mode", "live")

	viper.SetDefault("host.tickInterval", "33ms")
	viper.SetDefault("host.maxTicks", 0)
	viper.SetDefault("host.statusInterval", "1s")
	viper.SetDefault("host.metricsAddr", "")

	viper.SetDefault("reference.latitude", 0.0)
	viper.SetDefault("reference.longitude", 0.0)
	viper.SetDefault("reference.height", 0.0)

	viper.SetDefault("session.bootTicks", 3)
	viper.SetDefault("session.trackingWarmupTicks", 10)
	viper.SetDefault("session.hasAnchorManager", true)
	viper.SetDefault("session.manualFails", false)
	viper.SetDefault("session.terrain.outcome", "success")
	viper.SetDefault("session.terrain.latencyTicks", 15)
	viper.SetDefault("session.terrain.surfaceHeight", 0.0)
	viper.SetDefault("session.rooftop.outcome", "success")
	viper.SetDefault("session.rooftop.latencyTicks", 20)
	viper.SetDefault("session.rooftop.surfaceHeight", 0.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "geoanchor")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "geoanchor")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "geoanchor")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// MemoryConfig holds settings for the in-memory backend.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects the resolution journal backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// HostConfig controls the tick loop.
type HostConfig struct {
	Mode           core.Mode
	TickInterval   time.Duration
	MaxTicks       int
	StatusInterval time.Duration
	MetricsAddr    string
}

// GetHostConfig returns the host section and the run mode.
func GetHostConfig() (HostConfig, error) {
	mode, ok := core.ParseMode(viper.GetString("mode"))
	if !ok {
		return HostConfig{}, fmt.Errorf("%w: %q", ErrUnknownMode, viper.GetString("mode"))
	}
	return HostConfig{
		Mode:           mode,
		TickInterval:   viper.GetDuration("host.tickInterval"),
		MaxTicks:       viper.GetInt("host.maxTicks"),
		StatusInterval: viper.GetDuration("host.statusInterval"),
		MetricsAddr:    viper.GetString("host.metricsAddr"),
	}, nil
}

// GetReference returns the configured tangent plane origin.
func GetReference() core.ReferencePoint {
	return core.ReferencePoint{
		Latitude:  viper.GetFloat64("reference.latitude"),
		Longitude: viper.GetFloat64("reference.longitude"),
		Height:    viper.GetFloat64("reference.height"),
	}
}

// OutcomeConfig is how the simulated session answers one request kind.
type OutcomeConfig struct {
	Outcome       string
	LatencyTicks  int
	SurfaceHeight float64
}

// SessionConfig describes the simulated tracking session.
type SessionConfig struct {
	BootTicks           int
	TrackingWarmupTicks int
	HasAnchorManager    bool
	ManualFails         bool
	Terrain             OutcomeConfig
	Rooftop             OutcomeConfig
}

// GetSessionConfig returns the session section.
func GetSessionConfig() SessionConfig {
	outcome := func(prefix string) OutcomeConfig {
		return OutcomeConfig{
			Outcome:       viper.GetString(prefix + ".outcome"),
			LatencyTicks:  viper.GetInt(prefix + ".latencyTicks"),
			SurfaceHeight: viper.GetFloat64(prefix + ".surfaceHeight"),
		}
	}
	return SessionConfig{
		BootTicks:           viper.GetInt("session.bootTicks"),
		TrackingWarmupTicks: viper.GetInt("session.trackingWarmupTicks"),
		HasAnchorManager:    viper.GetBool("session.hasAnchorManager"),
		ManualFails:         viper.GetBool("session.manualFails"),
		Terrain:             outcome("session.terrain"),
		Rooftop:             outcome("session.rooftop"),
	}
}

// AnchorConfig is one entry of the anchors list.
type AnchorConfig struct {
	Name           string    `json:"name" mapstructure:"name"`
	Latitude       float64   `json:"latitude" mapstructure:"latitude"`
	Longitude      float64   `json:"longitude" mapstructure:"longitude"`
	Altitude       float64   `json:"altitude" mapstructure:"altitude"`
	AltitudeOffset float64   `json:"altitudeOffset" mapstructure:"altitudeOffset"`
	AltitudeType   string    `json:"altitudeType" mapstructure:"altitudeType"`
	Position       []float64 `json:"position" mapstructure:"position"` // initial scene position, EUN metres
}

// Type parses AltitudeType.
func (a AnchorConfig) Type() (core.AltitudeType, error) {
	t, ok := core.ParseAltitudeType(a.AltitudeType)
	if !ok {
		return t, fmt.Errorf("anchor %q: %w: %q", a.Name, ErrUnknownAltitudeType, a.AltitudeType)
	}
	return t, nil
}

// GetAnchors decodes the anchors list and validates every entry.
func GetAnchors() ([]AnchorConfig, error) {
	var anchors []AnchorConfig
	if err := viper.UnmarshalKey("anchors", &anchors); err != nil {
		return nil, fmt.Errorf("decoding anchors: %w", err)
	}

	seen := make(map[string]bool, len(anchors))
	for i, a := range anchors {
		if a.Name == "" {
			return nil, fmt.Errorf("anchor %d: name is required", i)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("anchor %q: duplicate name", a.Name)
		}
		seen[a.Name] = true
		if _, err := a.Type(); err != nil {
			return nil, err
		}
		if len(a.Position) != 0 && len(a.Position) != 3 {
			return nil, fmt.Errorf("anchor %q: position needs 3 components, got %d", a.Name, len(a.Position))
		}
	}
	return anchors, nil
}
