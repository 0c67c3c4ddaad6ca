package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player,omitempty"`
	Monitor MonitorConfig `yaml:"monitor,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// PlayerConfig contains media player settings
type PlayerConfig struct {
	Path string `yaml:"path,omitempty"`
	Args string `yaml:"args,omitempty"`
	// Width and Height are the window geometry requested from the player, and reported as the player size
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
	// Version is reported as the player software version.  Detected from the player when empty.
	Version string `yaml:"version,omitempty"`
}

// MonitorConfig contains the analytics monitoring settings
type MonitorConfig struct {
	EnvKey string `yaml:"env_key,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
	// IDGenerator selects how session IDs are generated.  One of: short, uuid
	IDGenerator string `yaml:"id_generator,omitempty"`
	// Data is extra metadata sent with the session, e.g. video_title or viewer_user_id
	Data map[string]any `yaml:"data,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// UIConfig contains UI display preferences
type UIConfig struct {
	// Enabled shows the terminal event monitor while playing
	Enabled bool `yaml:"enabled,omitempty"`
	// MaxEvents is the number of recent events kept on screen
	MaxEvents int `yaml:"max_events,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Apply environment variable overrides
func Load() (*Config, error) {
	// 1. Start with base defaults
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	// 2. If no config file exists on disk, then write a default one
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still start up using the defaults.
		_ = save(cfg, configPath)
	}

	// 3. Apply dynamic defaults if necessary
	applyDynamicDefaults(cfg)

	// 4. Load the config from disk and merge it into the base defaults
	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	// Overrides the config with any values coming from the loaded file
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	// 5. Apply the environment variable overrides which take precedence
	applyEnvVarOverrides(cfg)

	return cfg, nil
}

// MonitorData returns the metadata to send with each analytics session.  The env key is folded into the data map
// unless the data map already sets one.
func (c *Config) MonitorData() map[string]any {
	data := make(map[string]any, len(c.Monitor.Data)+1)
	if c.Monitor.EnvKey != "" {
		data["env_key"] = c.Monitor.EnvKey
	}
	for k, v := range c.Monitor.Data {
		data[k] = v
	}
	return data
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
// Unlike static defaults, these values might change between runs based on the environment or system configuration.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	// Create config dir if not exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else tries
// to use OS config location defaults.
func getConfigPath() (string, error) {
	configPath := os.Getenv("MUXBRIDGE_CONFIG_PATH")
	if configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "muxbridge", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Path:   "mpv",
			Width:  1280,
			Height: 720,
		},
		Monitor: MonitorConfig{
			IDGenerator: "short",
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
		UI: UIConfig{
			MaxEvents: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to logging in the current directory if home directory cannot be determined
		return filepath.Join(".", "muxbridge.log")
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\muxbridge\logs
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "muxbridge", "logs")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "muxbridge", "logs")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/muxbridge
		basePath = filepath.Join(homedir, "Library", "Logs", "muxbridge")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			basePath = filepath.Join(xdgState, "muxbridge", "logs")
		} else {
			basePath = filepath.Join(homedir, ".local", "state", "muxbridge", "logs")
		}
	}

	err = os.MkdirAll(basePath, 0700)
	if err != nil {
		// If we failed to create the directory, fallback to logging in the current directory
		return filepath.Join(".", "muxbridge.log")
	}
	return filepath.Join(basePath, "muxbridge.log")
}
