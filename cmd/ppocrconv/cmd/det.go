package cmd

import (
	"github.com/sensorable/ppocrconv"
	"github.com/spf13/cobra"
)

func newDetCommand(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "det",
		Short: "Write a PaddleOCR detection label file",
		Long: `Writes one line per annotation file: the image path, a tab and a JSON array of
{"transcription", "points"} objects.

LabelMe image paths are <image-prefix>/<base name><image-ext>. YOLO images are looked up as
<base name>.jpg, then <base name>.png, in --images; files without an image are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFrom(from); err != nil {
				return err
			}
			cfg := a.cfg
			if err := requireSet("--labels", cfg.LabelDir, "--output", cfg.Output); err != nil {
				return err
			}

			dc := ppocrconv.DetectionConfig{
				LabelDir:    cfg.LabelDir,
				Output:      cfg.Output,
				ImagePrefix: cfg.ImagePrefix,
				ImageExt:    cfg.ImageExt,
				ImageDir:    cfg.ImageDir,
				ImageWidth:  cfg.ImageWidth,
				ImageHeight: cfg.ImageHeight,
				Options:     a.options(),
			}

			var report ppocrconv.Report
			var err error
			switch from {
			case formatLabelMe:
				report, err = ppocrconv.LabelMeToDetection(dc)
			case formatYOLO:
				if err := requireSet("--images", cfg.ImageDir); err != nil {
					return err
				}
				if dc.ClassMap, err = a.loadClassMap(); err != nil {
					return err
				}
				report, err = ppocrconv.YOLOToDetection(dc)
			}
			if err != nil {
				return err
			}
			return a.finish(cmd, report)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "the source format (labelme, yolo)")
	cmd.Flags().String("labels", "", "the source annotation directory")
	cmd.Flags().StringP("output", "o", "", "the output label file")
	cmd.Flags().String("images", "", "the paired image directory (yolo)")
	cmd.Flags().Int("width", 0, "the image width for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().Int("height", 0, "the image height for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().String("class-map", "",
		"class labels (data.yaml or one label per line) used as transcriptions instead of class ids (yolo)")
	cmd.Flags().String("image-prefix", "images", "the directory prefix of emitted image paths (labelme)")
	cmd.Flags().String("image-ext", ppocrconv.DefaultImageExt, "the extension of emitted image paths (labelme)")

	return cmd
}
