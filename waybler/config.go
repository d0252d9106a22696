package waybler

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCron           = "0 17-23 * * *"
	DefaultTimezone       = "Europe/Stockholm"
	DefaultLookAheadHours = 14.0
	DefaultMaxSpotPrice   = 1.5
	MaxLookAheadHours     = 24.0
)

type Config struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base_url"`

	Cron           string  `yaml:"cron"`
	Timezone       string  `yaml:"timezone"`
	LookAheadHours float64 `yaml:"look_ahead_hours"`
	MaxSpotPrice   float64 `yaml:"max_spot_price"`
}

var DefaultConfigFilePath = filepath.Join(xdg.ConfigHome, "autowaybler", "config.yaml")

// DefaultConfig returns a Config with every optional field populated.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        BaseURL,
		Cron:           DefaultCron,
		Timezone:       DefaultTimezone,
		LookAheadHours: DefaultLookAheadHours,
		MaxSpotPrice:   DefaultMaxSpotPrice,
	}
}

// GetConfigFromFile decodes the YAML file on top of DefaultConfig.
func GetConfigFromFile(inputConfigFile string) (*Config, error) {
	if inputConfigFile == "" {
		inputConfigFile = DefaultConfigFilePath
	}
	f, err := os.Open(inputConfigFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfiguration, inputConfigFile, err)
	}
	return cfg, nil
}

// Validate checks the settings and clamps LookAheadHours to MaxLookAheadHours.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: username and password are required (WAYBLER_EMAIL, WAYBLER_PASSWORD)", ErrConfiguration)
	}
	if !isPositiveFinite(c.LookAheadHours) {
		return fmt.Errorf("%w: look-ahead hours must be a positive number, got %v", ErrConfiguration, c.LookAheadHours)
	}
	if !isPositiveFinite(c.MaxSpotPrice) {
		return fmt.Errorf("%w: max spot price must be a positive number, got %v", ErrConfiguration, c.MaxSpotPrice)
	}
	c.LookAheadHours = math.Min(c.LookAheadHours, MaxLookAheadHours)

	if c.Cron == "" {
		c.Cron = DefaultCron
	}
	if _, err := cron.ParseStandard(c.Cron); err != nil {
		return fmt.Errorf("%w: invalid cron expression %q: %v", ErrConfiguration, c.Cron, err)
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.BaseURL == "" {
		c.BaseURL = BaseURL
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q: %v", ErrConfiguration, c.Timezone, err)
	}
	return loc, nil
}

// LookAhead returns the look-ahead window as a duration.
func (c *Config) LookAhead() time.Duration {
	return time.Duration(c.LookAheadHours * float64(time.Hour))
}

// ParsePositiveFloat parses a numeric setting coming from the environment.
func ParsePositiveFloat(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || !isPositiveFinite(f) {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrConfiguration, name, value)
	}
	return f, nil
}

func isPositiveFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
