package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "planetmap.cfg.json"

// APIConfig holds backend endpoints.
type APIConfig struct {
	ServerURL        string        `json:"serverUrl" mapstructure:"serverUrl"`
	TilesURL         string        `json:"tilesUrl" mapstructure:"tilesUrl"`
	Timeout          time.Duration `json:"timeout" mapstructure:"timeout"`
	AnalysisInterval time.Duration `json:"analysisInterval" mapstructure:"analysisInterval"`
}

// MapConfig holds canvas and tile pyramid settings.
type MapConfig struct {
	MinZoom       int     `json:"minZoom" mapstructure:"minZoom"`
	MaxZoom       int     `json:"maxZoom" mapstructure:"maxZoom"`
	InitialZoom   int     `json:"initialZoom" mapstructure:"initialZoom"`
	InitialLat    float64 `json:"initialLat" mapstructure:"initialLat"`
	InitialLon    float64 `json:"initialLon" mapstructure:"initialLon"`
	Projection    string  `json:"projection" mapstructure:"projection"`
	TileCacheSize int     `json:"tileCacheSize" mapstructure:"tileCacheSize"`
}

// NavigationConfig controls coordinate search flights.
type NavigationConfig struct {
	TargetZoom     int           `json:"targetZoom" mapstructure:"targetZoom"`
	FlightDuration time.Duration `json:"flightDuration" mapstructure:"flightDuration"`
}

// BodyConfig describes one celestial body.
type BodyConfig struct {
	Name        string  `json:"name" mapstructure:"name"`
	DisplayName string  `json:"displayName" mapstructure:"displayName"`
	RadiusKm    float64 `json:"radiusKm" mapstructure:"radiusKm"`
	Dataset     string  `json:"dataset" mapstructure:"dataset"`
}

// SessionConfig controls owner id resolution.
type SessionConfig struct {
	DefaultOwnerID     int64 `json:"defaultOwnerId" mapstructure:"defaultOwnerId"`
	LabelOwnerFallback bool  `json:"labelOwnerFallback" mapstructure:"labelOwnerFallback"`
}

// SQLiteConfig holds SQLite snapshot settings.
type SQLiteConfig struct {
	Path           string        `json:"path" mapstructure:"path"`
	BackupPath     string        `json:"backupPath" mapstructure:"backupPath"`
	BackupInterval time.Duration `json:"backupInterval" mapstructure:"backupInterval"`
}

// StorageConfig selects the offline label snapshot backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// InfluxConfig holds telemetry sink settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// GraylogConfig holds GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
	Level   string `json:"level" mapstructure:"level"`
}

// DefaultBodies lists the bodies known without any config file.
var DefaultBodies = []string{"mars", "moon", "mercury"}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./planetmaplogs")

	viper.SetDefault("api.serverUrl", "http://localhost:8000")
	viper.SetDefault("api.tilesUrl", "")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.analysisInterval", "2s")

	viper.SetDefault("map.minZoom", 1)
	viper.SetDefault("map.maxZoom", 7)
	viper.SetDefault("map.initialZoom", 2)
	viper.SetDefault("map.initialLat", 0.0)
	viper.SetDefault("map.initialLon", 0.0)
	viper.SetDefault("map.projection", "equirectangular")
	viper.SetDefault("map.tileCacheSize", 512)

	viper.SetDefault("navigation.targetZoom", 7)
	viper.SetDefault("navigation.flightDuration", "3.5s")

	viper.SetDefault("status.ttl", "3s")

	viper.SetDefault("bodies.mars.displayName", "Mars")
	viper.SetDefault("bodies.mars.radiusKm", 3389.5)
	viper.SetDefault("bodies.mars.dataset", "global")
	viper.SetDefault("bodies.moon.displayName", "Moon")
	viper.SetDefault("bodies.moon.radiusKm", 1737.4)
	viper.SetDefault("bodies.moon.dataset", "moon")
	viper.SetDefault("bodies.mercury.displayName", "Mercury")
	viper.SetDefault("bodies.mercury.radiusKm", 2439.7)
	viper.SetDefault("bodies.mercury.dataset", "mercury")

	viper.SetDefault("session.defaultOwnerId", 102)
	viper.SetDefault("session.labelOwnerFallback", true)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", "./planetmap.db")
	viper.SetDefault("storage.sqlite.backupInterval", "0s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "planetmap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "planetmap")
	viper.SetDefault("influx.bucket", "planetmap_telemetry")
	viper.SetDefault("influx.backupPath", "./planetmap_telemetry.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.level", "warn")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults remain
// in effect when the file cannot be read.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetAPIConfig returns backend endpoint settings.
// TilesURL falls back to ServerURL when unset.
func GetAPIConfig() APIConfig {
	cfg := APIConfig{
		ServerURL:        viper.GetString("api.serverUrl"),
		TilesURL:         viper.GetString("api.tilesUrl"),
		Timeout:          viper.GetDuration("api.timeout"),
		AnalysisInterval: viper.GetDuration("api.analysisInterval"),
	}
	if cfg.TilesURL == "" {
		cfg.TilesURL = cfg.ServerURL
	}
	return cfg
}

// GetMapConfig returns canvas settings.
func GetMapConfig() MapConfig {
	return MapConfig{
		MinZoom:       viper.GetInt("map.minZoom"),
		MaxZoom:       viper.GetInt("map.maxZoom"),
		InitialZoom:   viper.GetInt("map.initialZoom"),
		InitialLat:    viper.GetFloat64("map.initialLat"),
		InitialLon:    viper.GetFloat64("map.initialLon"),
		Projection:    viper.GetString("map.projection"),
		TileCacheSize: viper.GetInt("map.tileCacheSize"),
	}
}

// GetNavigationConfig returns search flight settings.
func GetNavigationConfig() NavigationConfig {
	return NavigationConfig{
		TargetZoom:     viper.GetInt("navigation.targetZoom"),
		FlightDuration: viper.GetDuration("navigation.flightDuration"),
	}
}

// GetStatusTTL returns how long a status message stays visible.
func GetStatusTTL() time.Duration {
	return viper.GetDuration("status.ttl")
}

// GetBodyConfig returns the settings of a named body (case-insensitive).
func GetBodyConfig(name string) (BodyConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || !viper.IsSet("bodies."+key+".radiusKm") {
		return BodyConfig{}, fmt.Errorf("unknown celestial body: %q", name)
	}
	cfg := BodyConfig{
		Name:        key,
		DisplayName: viper.GetString("bodies." + key + ".displayName"),
		RadiusKm:    viper.GetFloat64("bodies." + key + ".radiusKm"),
		Dataset:     viper.GetString("bodies." + key + ".dataset"),
	}
	if cfg.RadiusKm <= 0 {
		return BodyConfig{}, fmt.Errorf("body %q has invalid radius %v", name, cfg.RadiusKm)
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = key
	}
	return cfg, nil
}

// GetSessionConfig returns owner id resolution settings.
func GetSessionConfig() SessionConfig {
	return SessionConfig{
		DefaultOwnerID:     viper.GetInt64("session.defaultOwnerId"),
		LabelOwnerFallback: viper.GetBool("session.labelOwnerFallback"),
	}
}

// GetStorageConfig returns the snapshot backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path:           viper.GetString("storage.sqlite.path"),
			BackupPath:     viper.GetString("storage.sqlite.backupPath"),
			BackupInterval: viper.GetDuration("storage.sqlite.backupInterval"),
		},
	}
}

// GetInfluxConfig returns telemetry sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
		Level:   viper.GetString("graylog.level"),
	}
}
