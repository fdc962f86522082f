package cmd

import (
	"github.com/sensorable/ppocrconv"
	"github.com/spf13/cobra"
)

func newRecCommand(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "rec",
		Short: "Crop annotated regions and write a PaddleOCR recognition label file",
		Long: `Crops every labeled region to <crops>/<base name>_<index>.<crop-ext> and writes one
line per crop: the crop path, a tab and the label in double quotes. Regions without a label are
not cropped.

LabelMe source images are the imagePath of each document, relative to --labels. YOLO labels are
looked up by class id in --class-map; ids without an entry are labeled "unknown".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFrom(from); err != nil {
				return err
			}
			cfg := a.cfg
			if err := requireSet("--labels", cfg.LabelDir, "--output", cfg.Output, "--crops", cfg.CropDir); err != nil {
				return err
			}

			rc := ppocrconv.RecognitionConfig{
				LabelDir:    cfg.LabelDir,
				Output:      cfg.Output,
				CropDir:     cfg.CropDir,
				CropExt:     cfg.CropExt,
				JPEGQuality: cfg.JPEGQuality,
				ImageDir:    cfg.ImageDir,
				ImageWidth:  cfg.ImageWidth,
				ImageHeight: cfg.ImageHeight,
				Options:     a.options(),
			}

			var report ppocrconv.Report
			var err error
			switch from {
			case formatLabelMe:
				report, err = ppocrconv.LabelMeToRecognition(rc)
			case formatYOLO:
				if err := requireSet("--images", cfg.ImageDir, "--class-map", cfg.ClassMap); err != nil {
					return err
				}
				if rc.ClassMap, err = a.loadClassMap(); err != nil {
					return err
				}
				report, err = ppocrconv.YOLOToRecognition(rc)
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
	cmd.Flags().String("crops", "", "the output directory for cropped images")
	cmd.Flags().String("crop-ext", ppocrconv.DefaultCropExt, "the crop encoding (jpg, png, bmp, gif, tif, webp)")
	cmd.Flags().Int("jpeg-quality", ppocrconv.DefaultJPEGQuality, "the quality of jpg and webp crops [1, 100]")
	cmd.Flags().String("images", "", "the paired image directory (yolo)")
	cmd.Flags().Int("width", 0, "the image width for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().Int("height", 0, "the image height for de-normalization; 0 reads it from each image (yolo)")
	cmd.Flags().String("class-map", "", "class labels, data.yaml or one label per line (yolo)")

	return cmd
}
