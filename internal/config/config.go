package config

import (
	"fmt"
	"strings"

	"github.com/sensorable/ppocrconv"
)

// Config is the complete configuration of the ppocrconv CLI. Values come from the config
// file, PPOCRCONV_* environment variables and command-line flags, in increasing precedence.
type Config struct {
	// Global settings
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// MetricsFile receives the conversion counters in the Prometheus text format.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`

	// Source and output
	LabelDir    string `mapstructure:"label_dir" yaml:"label_dir" json:"label_dir"`
	Output      string `mapstructure:"output" yaml:"output" json:"output"`
	ImageDir    string `mapstructure:"image_dir" yaml:"image_dir" json:"image_dir"`
	ImageWidth  int    `mapstructure:"image_width" yaml:"image_width" json:"image_width"`
	ImageHeight int    `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	ClassMap    string `mapstructure:"class_map" yaml:"class_map" json:"class_map"`

	// LabelMe detection image references
	ImagePrefix string `mapstructure:"image_prefix" yaml:"image_prefix" json:"image_prefix"`
	ImageExt    string `mapstructure:"image_ext" yaml:"image_ext" json:"image_ext"`

	// Recognition crops
	CropDir     string `mapstructure:"crop_dir" yaml:"crop_dir" json:"crop_dir"`
	CropExt     string `mapstructure:"crop_ext" yaml:"crop_ext" json:"crop_ext"`
	JPEGQuality int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`

	// Label rewriting
	NormalizeLabels bool     `mapstructure:"normalize_labels" yaml:"normalize_labels" json:"normalize_labels"`
	LabelMappings   []string `mapstructure:"label_mappings" yaml:"label_mappings" json:"label_mappings"`

	// TFRecord export
	TFRecord TFRecordConfig `mapstructure:"tfrecord" yaml:"tfrecord" json:"tfrecord"`
}

// TFRecordConfig contains the TFRecord export settings.
type TFRecordConfig struct {
	LabelMapFile string `mapstructure:"label_map_file" yaml:"label_map_file" json:"label_map_file"`
	Shards       int    `mapstructure:"shards" yaml:"shards" json:"shards"`
}

const infoLevel = "info"

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel:    infoLevel,
		LogFormat:   "text",
		ImagePrefix: "images",
		ImageExt:    ppocrconv.DefaultImageExt,
		CropExt:     ppocrconv.DefaultCropExt,
		JPEGQuality: ppocrconv.DefaultJPEGQuality,
		TFRecord: TFRecordConfig{
			Shards: 1,
		},
	}
}

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", infoLevel, "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	if c.ImageWidth < 0 || c.ImageHeight < 0 {
		return fmt.Errorf("invalid image size %dx%d: dimensions must not be negative", c.ImageWidth, c.ImageHeight)
	}
	if (c.ImageWidth == 0) != (c.ImageHeight == 0) {
		return fmt.Errorf("invalid image size %dx%d: set both dimensions or neither", c.ImageWidth, c.ImageHeight)
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality %d: must be in [1, 100]", c.JPEGQuality)
	}

	if c.TFRecord.Shards < 1 {
		return fmt.Errorf("invalid tfrecord.shards %d: must be at least 1", c.TFRecord.Shards)
	}

	if _, err := ppocrconv.ParseLabelMappings(c.LabelMappings); err != nil {
		return err
	}

	return nil
}

// LabelOptions returns the label rewriting options. The mappings must have passed Validate.
func (c *Config) LabelOptions() ppocrconv.LabelOptions {
	mappings, _ := ppocrconv.ParseLabelMappings(c.LabelMappings)
	return ppocrconv.LabelOptions{Mappings: mappings, Normalize: c.NormalizeLabels}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
