package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sensorable/ppocrconv"
	"github.com/sensorable/ppocrconv/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source formats accepted by --from.
const (
	formatLabelMe = "labelme"
	formatYOLO    = "yolo"
)

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"log-format":       "log_format",
	"verbose":          "verbose",
	"metrics-file":     "metrics_file",
	"labels":           "label_dir",
	"output":           "output",
	"images":           "image_dir",
	"width":            "image_width",
	"height":           "image_height",
	"class-map":        "class_map",
	"image-prefix":     "image_prefix",
	"image-ext":        "image_ext",
	"crops":            "crop_dir",
	"crop-ext":         "crop_ext",
	"jpeg-quality":     "jpeg_quality",
	"normalize-labels": "normalize_labels",
	"map-labels":       "label_mappings",
	"label-map-file":   "tfrecord.label_map_file",
	"shards":           "tfrecord.shards",
}

// errSkippedFiles is returned when a run completed but skipped annotation files.
var errSkippedFiles = errors.New("annotation files were skipped")

// app holds the state of one command execution.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	metrics *ppocrconv.Metrics
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ppocrconv",
		Short: "Convert LabelMe and YOLO annotations to PaddleOCR label files",
		Long: `Converts object annotation datasets to the label formats of PaddleOCR.

Sources:
- LabelMe JSON documents with polygon shapes
- YOLO (Roboflow YOLOv8) text files with normalized boxes

Targets:
- Detection labels: one line per image, path<TAB>JSON array of regions
- Recognition labels: one cropped image per region, path<TAB>"label"
- TFRecord object detection examples

Examples:
  ppocrconv det --from labelme --labels data/labels --output data/det.txt
  ppocrconv rec --from yolo --labels det/labels --images det/images --class-map data.yaml \
      --crops rec/images --output rec/labels.txt --width 320 --height 320
  ppocrconv batch --project Carrier_number --sizes 320`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s.yaml in %v)", config.ConfigFileName, config.GetConfigSearchPaths()))
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("metrics-file", "",
		"write conversion counters in the Prometheus text format to this file")
	rootCmd.PersistentFlags().Bool("normalize-labels", false, "apply Unicode NFC normalization to labels")
	rootCmd.PersistentFlags().StringSlice("map-labels", nil,
		"comma-separated list of old=new label (sub-)string replacements")

	rootCmd.AddCommand(newDetCommand(a), newRecCommand(a), newTFRecordCommand(a), newBatchCommand(a))
	return rootCmd
}

// Execute runs the root command and exits with status 1 on any error, including runs that
// skipped annotation files.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// init loads the configuration with the flags of the executing command bound on top and sets
// up logging.
func (a *app) init(cmd *cobra.Command) error {
	loader := config.NewLoader()
	bindFlags(loader.GetViper(), cmd.Flags())

	cfg, err := loader.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)

	if used := loader.GetConfigFileUsed(); used != "" {
		a.logger.Debug("Loaded configuration", "file", used)
	}
	if cfg.MetricsFile != "" {
		a.metrics = ppocrconv.NewMetrics()
	}
	return nil
}

// bindFlags binds the known flags of fs to their configuration keys.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// options returns the pipeline options for the loaded configuration.
func (a *app) options() ppocrconv.Options {
	return ppocrconv.Options{Labels: a.cfg.LabelOptions(), Logger: a.logger, Metrics: a.metrics}
}

// loadClassMap loads the configured class map, or returns nil if none is configured.
func (a *app) loadClassMap() (ppocrconv.ClassLabelMap, error) {
	if a.cfg.ClassMap == "" {
		return nil, nil
	}
	m, err := ppocrconv.LoadClassLabelMap(a.cfg.ClassMap)
	if err != nil {
		return nil, fmt.Errorf("failed to load the class labels: %w", err)
	}
	a.logger.Debug("Loaded class labels", "file", a.cfg.ClassMap, "classes", len(m))
	return m, nil
}

// finish writes the metrics file and turns skipped files into the exit status.
func (a *app) finish(cmd *cobra.Command, report ppocrconv.Report) error {
	if a.metrics != nil {
		if err := a.metrics.WriteToTextfile(a.cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Converted %d of %d annotation files, wrote %d records\n",
		report.Converted, report.Discovered, report.Lines)
	if report.Failed() {
		for _, s := range report.Skipped {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s: %v\n", s.Path, s.Err)
		}
		return fmt.Errorf("%w: %d", errSkippedFiles, len(report.Skipped))
	}
	return nil
}

// requireSet returns an error naming the first empty value.
func requireSet(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("missing required option %s", pairs[i])
		}
	}
	return nil
}

// validateFrom checks the --from value.
func validateFrom(from string) error {
	switch from {
	case formatLabelMe, formatYOLO:
		return nil
	}
	return fmt.Errorf("unsupported input format %q (must be %s or %s)", from, formatLabelMe, formatYOLO)
}
