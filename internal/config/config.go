package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"auber_controller/internal/device"
	"auber_controller/internal/models"
	"auber_controller/internal/program"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. AUBER_DEVICE_PORT.
const EnvPrefix = "AUBER"

// Config is everything the service needs at startup.
type Config struct {
	Port       string
	DB         DBConfig
	Log        LogConfig
	Auth       AuthConfig
	Device     device.Config
	Instrument program.Bounds
	Controller ControllerConfig
}

type DBConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
	// SignupRole is given to every account after the first, which is always an operator.
	SignupRole string
}

type ControllerConfig struct {
	TickInterval time.Duration
	SeedPresets  bool
}

// New returns a viper instance with defaults, env overrides and the configs/config.yml search path.
func New(paths ...string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{"configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	dev := device.DefaultConfig()
	bounds := program.DefaultBounds()

	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "auber.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("auth.signup_role", models.RoleViewer)
	v.SetDefault("device.port", dev.Port)
	v.SetDefault("device.address", int(dev.Address))
	v.SetDefault("device.baud_rate", dev.BaudRate)
	v.SetDefault("device.timeout", dev.Timeout)
	v.SetDefault("device.temperature_limit", dev.TemperatureLimit)
	v.SetDefault("instrument.min_temp_c", bounds.MinTempC)
	v.SetDefault("instrument.max_duration_h", bounds.MaxDurationHrs)
	v.SetDefault("controller.tick_interval", time.Second)
	v.SetDefault("controller.seed_presets", true)
}

// Load reads an optional .env file, then the config file (missing is fine) and env overrides.
func Load(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port: v.GetString("port"),
		DB:   DBConfig{Path: v.GetString("db.path")},
		Log:  LogConfig{Level: v.GetString("log.level"), Format: v.GetString("log.format")},
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
			SignupRole: strings.ToLower(strings.TrimSpace(v.GetString("auth.signup_role"))),
		},
		Device: device.Config{
			Port:             v.GetString("device.port"),
			Address:          byte(v.GetUint("device.address")),
			BaudRate:         v.GetInt("device.baud_rate"),
			Timeout:          v.GetDuration("device.timeout"),
			TemperatureLimit: v.GetFloat64("device.temperature_limit"),
		},
		Instrument: program.Bounds{
			MinTempC:       v.GetFloat64("instrument.min_temp_c"),
			MaxTempC:       v.GetFloat64("device.temperature_limit"),
			MaxDurationHrs: v.GetFloat64("instrument.max_duration_h"),
		},
		Controller: ControllerConfig{
			TickInterval: v.GetDuration("controller.tick_interval"),
			SeedPresets:  v.GetBool("controller.seed_presets"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Controller.TickInterval <= 0:
		return fmt.Errorf("config: controller.tick_interval must be positive, got %s", c.Controller.TickInterval)
	case c.Instrument.MaxTempC <= c.Instrument.MinTempC:
		return fmt.Errorf("config: device.temperature_limit %.1f must exceed instrument.min_temp_c %.1f",
			c.Instrument.MaxTempC, c.Instrument.MinTempC)
	case c.Instrument.MaxDurationHrs <= 0:
		return fmt.Errorf("config: instrument.max_duration_h must be positive")
	case c.Device.Address == 0:
		return fmt.Errorf("config: device.address must be 1..247")
	case !models.ValidRole(c.Auth.SignupRole):
		return fmt.Errorf("config: auth.signup_role must be %q or %q, got %q",
			models.RoleOperator, models.RoleViewer, c.Auth.SignupRole)
	}
	return nil
}
