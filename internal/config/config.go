package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"amdscan/internal/detector"
	"amdscan/pkg/model"
)

// Config represents the application configuration.
type Config struct {
	Detector Detector `yaml:"detector"`
	Scanner  Scanner  `yaml:"scanner"`
	Log      Log      `yaml:"log"`
}

// Detector holds the detection settings as the user states them:
// a named profile plus method/window knobs. Resolve() turns this into
// the concrete parameter set the detector consumes.
type Detector struct {
	Profile          string  `yaml:"profile" default:"ShortAccumulation" validate:"oneof=SmallManipulation ShortAccumulation BigManipulation"`
	BreakoutMethod   string  `yaml:"breakout_method" default:"Close" validate:"oneof=Close Wick"`
	ATRWindow        int     `yaml:"atr_window" default:"50" validate:"gt=0"`
	ExpandMultiplier float64 `yaml:"expand_multiplier" default:"0.5" validate:"gt=0"`
	RecentLimit      int     `yaml:"recent_limit" default:"50" validate:"gte=0"`
	Target           Target  `yaml:"target"`
}

// Target holds stop-loss/take-profit settings for both methods.
type Target struct {
	Method             string  `yaml:"method" default:"Dynamic" validate:"oneof=Fixed Dynamic"`
	TPPercent          float64 `yaml:"tp_percent" default:"0.3" validate:"gt=0"`
	SLPercent          float64 `yaml:"sl_percent" default:"0.4" validate:"gt=0"`
	RiskTier           string  `yaml:"risk_tier" default:"Normal" validate:"oneof=Highest High Normal Low Lowest Custom"`
	CustomSLMultiplier float64 `yaml:"custom_sl_multiplier" default:"5.0" validate:"gt=0"`
	RiskRewardRatio    float64 `yaml:"risk_reward_ratio" default:"0.86" validate:"gt=0"`
}

// Scanner holds multi-symbol scan settings.
type Scanner struct {
	Workers int           `yaml:"workers" default:"8" validate:"gte=1"`
	Timeout time.Duration `yaml:"timeout" default:"5m" validate:"gt=0"`
}

// Log holds logging settings.
type Log struct {
	Level  string `yaml:"level" default:"warn" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// profileParams maps each named profile to its
// {lookback, accumulation multiplier, manipulation multiplier} triple.
var profileParams = map[string]struct {
	Lookback     int
	Accumulation float64
	Manipulation float64
}{
	"SmallManipulation": {Lookback: 40, Accumulation: 5.0, Manipulation: 0.6},
	"ShortAccumulation": {Lookback: 11, Accumulation: 2.0, Manipulation: 1.0},
	"BigManipulation":   {Lookback: 40, Accumulation: 5.0, Manipulation: 1.0},
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err)) // struct tags are static
	}
	return cfg
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist. Invalid configuration is fatal to the run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Errors here are fatal; detection
// never starts with invalid parameters.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Resolve translates the named profile and method strings into the
// concrete parameter set the detector consumes.
func (d Detector) Resolve() (detector.Config, error) {
	params, ok := profileParams[d.Profile]
	if !ok {
		return detector.Config{}, fmt.Errorf("unknown profile %q", d.Profile)
	}

	cfg := detector.Config{
		Lookback:         params.Lookback,
		AccumulationMult: params.Accumulation,
		ManipulationMult: params.Manipulation,
		ExpandMult:       d.ExpandMultiplier,
		ATRWindow:        d.ATRWindow,
		Breakout:         model.BreakoutMethod(d.BreakoutMethod),
		RecentLimit:      d.RecentLimit,
		Target: detector.TargetConfig{
			Method:             model.TargetMethod(d.Target.Method),
			TPPercent:          d.Target.TPPercent,
			SLPercent:          d.Target.SLPercent,
			RiskTier:           model.RiskTier(d.Target.RiskTier),
			CustomSLMultiplier: d.Target.CustomSLMultiplier,
			RiskReward:         d.Target.RiskRewardRatio,
		},
	}

	if err := cfg.Validate(); err != nil {
		return detector.Config{}, err
	}
	return cfg, nil
}
