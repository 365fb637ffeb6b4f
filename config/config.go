package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lab1702/gunnery/targeting"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory
const FileName = "gunnery.json"

// TargetingConfig holds the firing policy for every session of this server
type TargetingConfig struct {
	Policy          string  `mapstructure:"policy"`
	AimToleranceDeg float64 `mapstructure:"aimToleranceDeg"` // negative = policy default
	Lead            bool    `mapstructure:"lead"`
	TrackMaxAge     int64   `mapstructure:"trackMaxAge"`
}

// RadarConfig holds radar lock settings
type RadarConfig struct {
	Overshoot float64 `mapstructure:"overshoot"`
}

// WebsocketConfig holds websocket gateway settings
type WebsocketConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// PostgresConfig holds postgres connection settings for the shot recorder
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RecorderConfig holds shot recorder settings
type RecorderConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Config is the complete server configuration
type Config struct {
	Port      string          `mapstructure:"port"`
	LogLevel  string          `mapstructure:"logLevel"`
	Targeting TargetingConfig `mapstructure:"targeting"`
	Radar     RadarConfig     `mapstructure:"radar"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Graylog   GraylogConfig   `mapstructure:"graylog"`
}

func setDefaults() {
	viper.SetDefault("port", "8080")
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("targeting.policy", "banded")
	viper.SetDefault("targeting.aimToleranceDeg", -1.0)
	viper.SetDefault("targeting.lead", false)
	viper.SetDefault("targeting.trackMaxAge", targeting.DefaultTrackMaxAge)

	viper.SetDefault("radar.overshoot", targeting.DefaultRadarOvershoot)

	viper.SetDefault("websocket.allowedOrigins", []string{})

	viper.SetDefault("recorder.enabled", false)
	viper.SetDefault("recorder.driver", "sqlite")
	viper.SetDefault("recorder.path", "gunnery_shots.db")
	viper.SetDefault("recorder.postgres.host", "localhost")
	viper.SetDefault("recorder.postgres.port", "5432")
	viper.SetDefault("recorder.postgres.username", "postgres")
	viper.SetDefault("recorder.postgres.password", "postgres")
	viper.SetDefault("recorder.postgres.database", "gunnery")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from gunnery.json in configDir (if present) and
// GUNNERY_* environment variables on top of the defaults.
func Load(configDir string) (Config, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	viper.SetEnvPrefix("GUNNERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}

	if _, err := cfg.Policy(); err != nil {
		return Config{}, err
	}
	if o := cfg.Radar.Overshoot; math.IsNaN(o) || math.IsInf(o, 0) || o <= 0 {
		return Config{}, fmt.Errorf("%w: radar overshoot must be positive, got %v", targeting.ErrInvalidInput, o)
	}
	if cfg.Recorder.Driver != "sqlite" && cfg.Recorder.Driver != "postgres" {
		return Config{}, fmt.Errorf("unknown recorder driver %q", cfg.Recorder.Driver)
	}

	return cfg, nil
}

// Policy builds the targeting policy from the targeting section
func (c Config) Policy() (targeting.Policy, error) {
	power, err := targeting.ParsePowerPolicy(c.Targeting.Policy)
	if err != nil {
		return targeting.Policy{}, err
	}

	var policy targeting.Policy
	switch power {
	case targeting.PowerContinuous:
		policy = targeting.ContinuousPolicy()
	default:
		policy = targeting.BandedPolicy()
	}

	if c.Targeting.AimToleranceDeg >= 0 {
		policy.AimTolerance = targeting.DegToRad(c.Targeting.AimToleranceDeg)
	} else if math.IsNaN(c.Targeting.AimToleranceDeg) {
		return targeting.Policy{}, fmt.Errorf("%w: aim tolerance is NaN", targeting.ErrInvalidInput)
	}
	policy.Lead = c.Targeting.Lead

	return policy, nil
}

// PostgresDSN returns the recorder's postgres connection string
func (c Config) PostgresDSN() string {
	pg := c.Recorder.Postgres
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pg.Host, pg.Port, pg.Username, pg.Password, pg.Database)
}
