package cmd

import (
	"fmt"

	"github.com/sensorable/ppocrconv"
	"github.com/spf13/cobra"
)

func newTFRecordCommand(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "tfrecord",
		Short: "Write TensorFlow object detection examples",
		Long: `Writes one tensorflow.Example per annotated image, with the bounds of every region as a
normalized box, and a StringIntLabelMap text file. The source images must be readable: LabelMe
images are resolved from the imagePath of each document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFrom(from); err != nil {
				return err
			}
			cfg := a.cfg
			if err := requireSet("--labels", cfg.LabelDir, "--output", cfg.Output,
				"--label-map-file", cfg.TFRecord.LabelMapFile); err != nil {
				return err
			}

			classMap, err := a.loadClassMap()
			if err != nil {
				return err
			}

			var data []ppocrconv.AnnotatedFile
			var report ppocrconv.Report
			switch from {
			case formatLabelMe:
				data, report, err = ppocrconv.FromLabelMe(cfg.LabelDir, ppocrconv.LabelMeImageFromDocument, a.options())
			case formatYOLO:
				if err := requireSet("--images", cfg.ImageDir); err != nil {
					return err
				}
				data, report, err = ppocrconv.FromYOLO(ppocrconv.YOLOSource{
					LabelDir:    cfg.LabelDir,
					ImageDir:    cfg.ImageDir,
					ImageWidth:  cfg.ImageWidth,
					ImageHeight: cfg.ImageHeight,
					ClassMap:    classMap,
				}, a.options())
			}
			if err != nil {
				return err
			}

			n, err := ppocrconv.WriteTFRecord(cfg.Output, cfg.TFRecord.LabelMapFile, data,
				cfg.TFRecord.Shards, classMap, a.options())
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}
			report.Lines = n
			return a.finish(cmd, report)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "the source format (labelme, yolo)")
	cmd.Flags().String("labels", "", "the source annotation directory")
	cmd.Flags().StringP("output", "o", "", "the TFRecord file; shards get a -NNNNN-of-NNNNN suffix")
	cmd.Flags().String("label-map-file", "", "the label map file to write")
	cmd.Flags().Int("shards", 1, "the number of shard files to create")
	cmd.Flags().String("images", "", "the paired image directory (yolo)")
	cmd.Flags().Int("width", 0, "the image width for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().Int("height", 0, "the image height for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().String("class-map", "", "class labels, data.yaml or one label per line; fixes the class ids")

	return cmd
}
