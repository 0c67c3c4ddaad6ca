package config

import (
	"os"
	"strconv"
	"strings"
)

type envVar struct {
	name  string
	desc  string
	apply func(*Config, string)
}

var supportedEnvVars = []envVar{
	{
		// Only here for documentation purposes.  Does not override any values in the config as this environment variable
		// points to where the config should be loaded.  It is handled prior to loading the config.
		name:  "MUXBRIDGE_CONFIG_PATH",
		desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) {}, // Special case, no-op
	},
	{
		name:  "MUXBRIDGE_CONFIG_PLAYER_PATH",
		desc:  "Sets the path to the mpv binary.  Default: mpv",
		apply: func(c *Config, s string) { c.Player.Path = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_PLAYER_ARGS",
		desc:  "Sets extra mpv arguments.  Default: None",
		apply: func(c *Config, s string) { c.Player.Args = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_PLAYER_WIDTH",
		desc:  "Sets the player window width.  Default: 1280",
		apply: func(c *Config, s string) { setInt(&c.Player.Width, s) },
	},
	{
		name:  "MUXBRIDGE_CONFIG_PLAYER_HEIGHT",
		desc:  "Sets the player window height.  Default: 720",
		apply: func(c *Config, s string) { setInt(&c.Player.Height, s) },
	},
	{
		name:  "MUXBRIDGE_CONFIG_MONITOR_ENV_KEY",
		desc:  "Sets the analytics environment key.  Default: None",
		apply: func(c *Config, s string) { c.Monitor.EnvKey = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_MONITOR_DEBUG",
		desc:  "Enables verbose analytics output.  Default: false",
		apply: func(c *Config, s string) { setBool(&c.Monitor.Debug, s) },
	},
	{
		name:  "MUXBRIDGE_CONFIG_MONITOR_ID_GENERATOR",
		desc:  "Sets the session ID generator.  One of `short` or `uuid`.  Default: short",
		apply: func(c *Config, s string) { c.Monitor.IDGenerator = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_METRICS_ENABLED",
		desc:  "Serves Prometheus metrics.  Default: false",
		apply: func(c *Config, s string) { setBool(&c.Metrics.Enabled, s) },
	},
	{
		name:  "MUXBRIDGE_CONFIG_METRICS_LISTEN",
		desc:  "Sets the metrics listen address.  Default: 127.0.0.1:9464",
		apply: func(c *Config, s string) { c.Metrics.Listen = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_UI_ENABLED",
		desc:  "Shows the terminal event monitor.  Default: false",
		apply: func(c *Config, s string) { setBool(&c.UI.Enabled, s) },
	},
	{
		name:  "MUXBRIDGE_CONFIG_LOGGING_LEVEL",
		desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: func(c *Config, s string) { c.Logging.Level = s },
	},
	{
		name:  "MUXBRIDGE_CONFIG_LOGGING_FILE_PATH",
		desc:  "Sets the logging file path.  Default: OS-specific",
		apply: func(c *Config, s string) { c.Logging.FilePath = s },
	},
}

func applyEnvVarOverrides(c *Config) {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.name); value != "" {
			envVar.apply(c, value)
		}
	}
}

// EnvVarHelp returns a description of every supported environment variable
func EnvVarHelp() string {
	var b strings.Builder
	for _, envVar := range supportedEnvVars {
		b.WriteString("  " + envVar.name + "\n      " + envVar.desc + "\n")
	}
	return b.String()
}

// Unparseable values leave the current setting alone
func setInt(dst *int, s string) {
	if v, err := strconv.Atoi(s); err == nil {
		*dst = v
	}
}

func setBool(dst *bool, s string) {
	if v, err := strconv.ParseBool(s); err == nil {
		*dst = v
	}
}
