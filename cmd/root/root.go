package root

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/denysvitali/autowaybler/waybler"
)

var (
	cfgFile  string
	logLevel string
	cfg      *waybler.Config
	log      = logrus.StandardLogger()
)

// envBindings maps config keys to the environment variables they are read from.
var envBindings = map[string]string{
	"username":         "WAYBLER_EMAIL",
	"password":         "WAYBLER_PASSWORD",
	"base_url":         "WAYBLER_BASE_URL",
	"cron":             "CRON",
	"timezone":         "TZ",
	"look_ahead_hours": "LOOK_AHEAD_HOURS",
	"max_spot_price":   "MAX_SPOT_PRICE",
}

var RootCmd = &cobra.Command{
	Use:   "autowaybler",
	Short: "autowaybler - charge your EV on Waybler stations when electricity is cheap",
	Long: `autowaybler connects to the Waybler charging API, looks at the spot prices of the
coming hours and starts a charge session when the cheapest price is below your limit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setLogLevel(); err != nil {
			return err
		}

		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = LoadConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/autowaybler/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("log-level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindEnv("log-level", "LOG_LEVEL")

	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// LoadConfig builds the configuration from defaults, the optional config file and
// the environment, in that order, and validates it.
func LoadConfig(v *viper.Viper, configPath string) (*waybler.Config, error) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	c, err := waybler.GetConfigFromFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if configPath != "" {
			return nil, fmt.Errorf("%w: config file %s not found", waybler.ErrConfiguration, configPath)
		}
		log.Debug("No config file found, using defaults and environment variables")
		c = waybler.DefaultConfig()
	}

	if v.IsSet("username") {
		c.Username = v.GetString("username")
	}
	if v.IsSet("password") {
		c.Password = v.GetString("password")
	}
	if v.IsSet("base_url") {
		c.BaseURL = v.GetString("base_url")
	}
	if v.IsSet("cron") {
		c.Cron = v.GetString("cron")
	}
	if v.IsSet("timezone") {
		c.Timezone = v.GetString("timezone")
	}
	if v.IsSet("look_ahead_hours") {
		if c.LookAheadHours, err = waybler.ParsePositiveFloat("LOOK_AHEAD_HOURS", v.GetString("look_ahead_hours")); err != nil {
			return nil, err
		}
	}
	if v.IsSet("max_spot_price") {
		if c.MaxSpotPrice, err = waybler.ParsePositiveFloat("MAX_SPOT_PRICE", v.GetString("max_spot_price")); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setLogLevel() error {
	logLevel := viper.GetString("log-level")
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}
	log.SetLevel(lvl)
	return nil
}

func Execute() error {
	return RootCmd.Execute()
}

func GetConfig() *waybler.Config {
	return cfg
}

func GetLogger() *logrus.Logger {
	return log
}

// NewClient builds a vendor client from the loaded configuration.
func NewClient() (*waybler.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return waybler.New(cfg)
}
