package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "ppocrconv"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PPOCRCONV"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads the configuration file from the search paths, or from configFile if it is not
// empty, applies environment variables and defaults, and validates the result.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()

		if err := l.v.ReadInConfig(); err != nil {
			// A missing config file is fine, defaults and env vars apply.
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return l.Unmarshal()
}

// Unmarshal decodes and validates the current settings, including bound flags.
func (l *Loader) Unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// GetViper returns the underlying viper instance, e.g. to bind flags.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()

	// Replace dots and dashes with underscores in env var names
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options. Every key gets a default so
// that AutomaticEnv can resolve it during Unmarshal.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("log_format", defaults.LogFormat)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("metrics_file", defaults.MetricsFile)

	l.v.SetDefault("label_dir", defaults.LabelDir)
	l.v.SetDefault("output", defaults.Output)
	l.v.SetDefault("image_dir", defaults.ImageDir)
	l.v.SetDefault("image_width", defaults.ImageWidth)
	l.v.SetDefault("image_height", defaults.ImageHeight)
	l.v.SetDefault("class_map", defaults.ClassMap)

	l.v.SetDefault("image_prefix", defaults.ImagePrefix)
	l.v.SetDefault("image_ext", defaults.ImageExt)

	l.v.SetDefault("crop_dir", defaults.CropDir)
	l.v.SetDefault("crop_ext", defaults.CropExt)
	l.v.SetDefault("jpeg_quality", defaults.JPEGQuality)

	l.v.SetDefault("normalize_labels", defaults.NormalizeLabels)
	l.v.SetDefault("label_mappings", []string{})

	l.v.SetDefault("tfrecord.label_map_file", defaults.TFRecord.LabelMapFile)
	l.v.SetDefault("tfrecord.shards", defaults.TFRecord.Shards)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "ppocrconv"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ppocrconv"))
	}

	paths = append(paths, "/etc/ppocrconv")

	return paths
}
