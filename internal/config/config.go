// Package config provides configuration management for tvarr-core using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxIdleTime = 30 * time.Minute

	defaultMaxOutputHeight   = 1080
	defaultAudioBitrateKbps  = 64
	defaultLaneQueueDepth    = 64
	defaultEncoderDialTimeout = 5 * time.Second
	defaultMaxDecodeBuffer   ByteSize = 4 << 20 // 4MB

	defaultRateControlKp          = 4.0
	defaultRateControlKi          = 2.0
	defaultRateControlKd          = 1.0
	defaultRateControlLambdaMax   = 1000.0
	defaultRateControlMinInterval = time.Second

	defaultMuxContainer = "mpegts"

	defaultScrapeConcurrency   = 1
	defaultScrapeTimeout       = 30 * time.Second
	defaultScrapeRescanCron    = "0 */15 * * * *" // every 15 minutes
	defaultScrapeCooldown      = 10 * time.Minute
	defaultScrapeYieldInterval = 100 * time.Millisecond
)

// Config holds all configuration for the application.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Transcode   TranscodeConfig   `mapstructure:"transcode"`
	RateControl RateControlConfig `mapstructure:"rate_control"`
	Mux         MuxConfig         `mapstructure:"mux"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// TranscodeConfig holds transcoder session defaults (§4.C/§4.D).
type TranscodeConfig struct {
	TargetVideoCodec   string        `mapstructure:"target_video_codec"`   // "", h264, mpeg2video
	TargetAudioCodec   string        `mapstructure:"target_audio_codec"`   // "", mpeg2audio, aac
	TargetSubtitleCodec string       `mapstructure:"target_subtitle_codec"`
	MaxOutputHeight    int           `mapstructure:"max_output_height"`
	AudioBitrateKbps   int           `mapstructure:"audio_bitrate_kbps"` // per channel
	LaneQueueDepth     int           `mapstructure:"lane_queue_depth"`
	EncoderDialTimeout time.Duration `mapstructure:"encoder_dial_timeout"`
	// MaxDecodeBuffer bounds the audio lane's decode scratch buffer;
	// packets that would grow it past this are dropped as a
	// BufferOverflow rather than growing without limit. It is loaded and
	// validated here; nothing in this repository passes it on to
	// transcode.Config.MaxDecodeBuffer.
	MaxDecodeBuffer ByteSize `mapstructure:"max_decode_buffer"`
}

// RateControlConfig holds PID controller gains for the rate feedback loop (§4.E).
type RateControlConfig struct {
	Kp          float64       `mapstructure:"kp"`
	Ki          float64       `mapstructure:"ki"`
	Kd          float64       `mapstructure:"kd"`
	LambdaMax   float64       `mapstructure:"lambda_max"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// MuxConfig holds container mux defaults (§4.F).
type MuxConfig struct {
	DefaultContainer string `mapstructure:"default_container"` // mpegts, matroska, webm
}

// ScrapeConfig holds EPG scrape worker defaults (§4.G).
type ScrapeConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Exec          string        `mapstructure:"exec"`
	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RescanCron    string        `mapstructure:"rescan_cron"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	YieldInterval time.Duration `mapstructure:"yield_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with TVARR_ and use underscores for nesting.
// Example: TVARR_DATABASE_DSN=tvarr.db.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tvarr")
		v.AddConfigPath("$HOME/.tvarr")
	}

	v.SetEnvPrefix("TVARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tvarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("transcode.target_video_codec", "")
	v.SetDefault("transcode.target_audio_codec", "")
	v.SetDefault("transcode.target_subtitle_codec", "")
	v.SetDefault("transcode.max_output_height", defaultMaxOutputHeight)
	v.SetDefault("transcode.audio_bitrate_kbps", defaultAudioBitrateKbps)
	v.SetDefault("transcode.lane_queue_depth", defaultLaneQueueDepth)
	v.SetDefault("transcode.encoder_dial_timeout", defaultEncoderDialTimeout)
	v.SetDefault("transcode.max_decode_buffer", defaultMaxDecodeBuffer.String())

	v.SetDefault("rate_control.kp", defaultRateControlKp)
	v.SetDefault("rate_control.ki", defaultRateControlKi)
	v.SetDefault("rate_control.kd", defaultRateControlKd)
	v.SetDefault("rate_control.lambda_max", defaultRateControlLambdaMax)
	v.SetDefault("rate_control.min_interval", defaultRateControlMinInterval)

	v.SetDefault("mux.default_container", defaultMuxContainer)

	v.SetDefault("scrape.enabled", false)
	v.SetDefault("scrape.exec", "")
	v.SetDefault("scrape.concurrency", defaultScrapeConcurrency)
	v.SetDefault("scrape.timeout", defaultScrapeTimeout)
	v.SetDefault("scrape.rescan_cron", defaultScrapeRescanCron)
	v.SetDefault("scrape.cooldown", defaultScrapeCooldown)
	v.SetDefault("scrape.yield_interval", defaultScrapeYieldInterval)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Transcode.MaxOutputHeight < 0 {
		return fmt.Errorf("transcode.max_output_height must not be negative")
	}
	if c.Transcode.LaneQueueDepth < 1 {
		return fmt.Errorf("transcode.lane_queue_depth must be at least 1")
	}
	if c.Transcode.MaxDecodeBuffer < 0 {
		return fmt.Errorf("transcode.max_decode_buffer must not be negative")
	}

	validContainers := map[string]bool{"mpegts": true, "matroska": true, "webm": true}
	if !validContainers[c.Mux.DefaultContainer] {
		return fmt.Errorf("mux.default_container must be one of: mpegts, matroska, webm")
	}

	if c.Scrape.Concurrency < 1 {
		return fmt.Errorf("scrape.concurrency must be at least 1")
	}

	return nil
}
