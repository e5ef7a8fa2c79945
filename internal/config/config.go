// Package config resolves the boxbot configuration from defaults, an
// optional YAML file and BOXBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/movetest"
	"github.com/psantana5/boxbot/pkg/navigation"
	"github.com/psantana5/boxbot/pkg/reporter"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "BOXBOT"

// Config is the effective configuration of one boxbot invocation
type Config struct {
	World       string        `mapstructure:"world" yaml:"world" json:"world"`
	Realtime    bool          `mapstructure:"realtime" yaml:"realtime" json:"realtime"`
	MaxDuration time.Duration `mapstructure:"max_duration" yaml:"max_duration" json:"max_duration"`

	Navigation navigation.Params `mapstructure:"navigation" yaml:"navigation" json:"navigation"`
	Reporter   reporter.Config   `mapstructure:"reporter" yaml:"reporter" json:"reporter"`
	MoveTest   movetest.Config   `mapstructure:"movetest" yaml:"movetest" json:"movetest"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Record  RecordConfig  `mapstructure:"record" yaml:"record" json:"record"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
	// Dump prints a text snapshot of all metrics when a run ends
	Dump bool `mapstructure:"dump" yaml:"dump" json:"dump"`
}

// RecordConfig points at the SQLite run recorder. An empty Path disables it.
type RecordConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// LogConfig selects the log level, format and optional file directory
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json" json:"json"`
	Dir   string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// New returns a viper instance with every default registered and
// environment overrides enabled. Keys map to variables by upper-casing and
// replacing dots, so navigation.max_speed is BOXBOT_NAVIGATION_MAX_SPEED.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("world", "")
	v.SetDefault("realtime", false)
	v.SetDefault("max_duration", time.Duration(0))

	nav := navigation.DefaultParams()
	v.SetDefault("navigation.time_step", nav.TimeStep)
	v.SetDefault("navigation.max_speed", nav.MaxSpeed)
	v.SetDefault("navigation.box_prefix", nav.BoxPrefix)
	v.SetDefault("navigation.box_count", nav.BoxCount)
	v.SetDefault("navigation.sensor_names", nav.SensorNames)
	v.SetDefault("navigation.front_sensors", nav.FrontSensors)
	v.SetDefault("navigation.obstacle_threshold", nav.ObstacleThreshold)
	v.SetDefault("navigation.obstacle_clearance", nav.ObstacleClearance)
	v.SetDefault("navigation.forward_dead_zone", nav.ForwardDeadZone)
	v.SetDefault("navigation.approach_distance", nav.ApproachDistance)
	v.SetDefault("navigation.lost_distance", nav.LostDistance)
	v.SetDefault("navigation.arrive_distance", nav.ArriveDistance)
	v.SetDefault("navigation.cruise_distance", nav.CruiseDistance)
	v.SetDefault("navigation.near_band", nav.NearBand)
	v.SetDefault("navigation.mid_band", nav.MidBand)
	v.SetDefault("navigation.stuck_ticks", nav.StuckTicks)
	v.SetDefault("navigation.stable_ticks", nav.StableTicks)
	v.SetDefault("navigation.cruise_speed", nav.CruiseSpeed)
	v.SetDefault("navigation.slow_speed", nav.SlowSpeed)
	v.SetDefault("navigation.turn_speed", nav.TurnSpeed)
	v.SetDefault("navigation.spin_speed", nav.SpinSpeed)
	v.SetDefault("navigation.near_speed", nav.NearSpeed)
	v.SetDefault("navigation.mid_speed", nav.MidSpeed)
	v.SetDefault("navigation.far_speed", nav.FarSpeed)

	rep := reporter.DefaultConfig()
	v.SetDefault("reporter.time_step", rep.TimeStep)
	v.SetDefault("reporter.interval", rep.Interval)
	v.SetDefault("reporter.box_prefix", rep.BoxPrefix)
	v.SetDefault("reporter.box_count", rep.BoxCount)

	mt := movetest.DefaultConfig()
	v.SetDefault("movetest.time_step", mt.TimeStep)
	v.SetDefault("movetest.max_speed", mt.MaxSpeed)
	v.SetDefault("movetest.forward_ticks", mt.ForwardTicks)
	v.SetDefault("movetest.rotate_ticks", mt.RotateTicks)
	v.SetDefault("movetest.spin_ticks", mt.SpinTicks)
	v.SetDefault("movetest.forward_speed", mt.ForwardSpeed)
	v.SetDefault("movetest.rotate_speed", mt.RotateSpeed)
	v.SetDefault("movetest.spin_speed", mt.SpinSpeed)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.dump", false)
	v.SetDefault("record.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.dir", "")
}

// SearchPaths lists the files tried when no config file is given
func SearchPaths() []string {
	paths := []string{"boxbot.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".boxbot", "config.yaml"))
	}
	return paths
}

// Load reads path into v (or the first existing SearchPaths entry when path
// is empty), then decodes and validates the result. A missing default file
// is not an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		for _, candidate := range SearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	if err := c.Navigation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("navigation: %w", err))
	}
	if c.Reporter.TimeStep <= 0 {
		errs = append(errs, errors.New("reporter: time_step must be positive"))
	}
	if c.Reporter.Interval < 0 {
		errs = append(errs, errors.New("reporter: interval must not be negative"))
	}
	if c.MoveTest.TimeStep <= 0 {
		errs = append(errs, errors.New("movetest: time_step must be positive"))
	}
	if c.MoveTest.MaxSpeed <= 0 {
		errs = append(errs, errors.New("movetest: max_speed must be positive"))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, errors.New("max_duration must not be negative"))
	}
	if _, ok := logLevels[strings.ToUpper(c.Log.Level)]; !ok {
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

var logLevels = map[string]struct{}{
	"DEBUG": {}, "INFO": {}, "WARN": {}, "WARNING": {}, "ERROR": {}, "FATAL": {},
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// Settings returns the effective settings of v as a nested map with
// durations rendered as strings, ready for YAML or JSON output.
func Settings(v *viper.Viper) map[string]interface{} {
	return printable(v.AllSettings())
}

func printable(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		switch typed := val.(type) {
		case map[string]interface{}:
			out[k] = printable(typed)
		case time.Duration:
			out[k] = typed.String()
		default:
			out[k] = val
		}
	}
	return out
}
