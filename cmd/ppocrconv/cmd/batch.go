package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sensorable/ppocrconv"
	"github.com/spf13/cobra"
)

// datasetJob is the conversion of one split of one Roboflow export.
type datasetJob struct {
	Root         string // {project}_{size}x{size}_{color}
	Split        string
	Size         int
	ClassMapPath string
	Det          ppocrconv.DetectionConfig
	Rec          ppocrconv.RecognitionConfig
}

// planBatch builds one job per split, color and size, using the Roboflow YOLOv8 export layout:
//
//	{project}_{size}x{size}_{color}/data.yaml
//	{project}_{size}x{size}_{color}/{split}/det/{labels,images}
//	{project}_{size}x{size}_{color}/{split}/det/labels.txt
//	{project}_{size}x{size}_{color}/{split}/rec/{images,labels.txt}
func planBatch(baseDir, project string, splits, colors []string, sizes []int) []datasetJob {
	jobs := make([]datasetJob, 0, len(splits)*len(colors)*len(sizes))
	for _, split := range splits {
		for _, color := range colors {
			for _, size := range sizes {
				root := filepath.Join(baseDir, fmt.Sprintf("%s_%dx%d_%s", project, size, size, color))
				det := filepath.Join(root, split, "det")
				rec := filepath.Join(root, split, "rec")
				jobs = append(jobs, datasetJob{
					Root:         root,
					Split:        split,
					Size:         size,
					ClassMapPath: filepath.Join(root, "data.yaml"),
					Det: ppocrconv.DetectionConfig{
						LabelDir:    filepath.Join(det, "labels"),
						Output:      filepath.Join(det, "labels.txt"),
						ImageDir:    filepath.Join(det, "images"),
						ImageWidth:  size,
						ImageHeight: size,
					},
					Rec: ppocrconv.RecognitionConfig{
						LabelDir:    filepath.Join(det, "labels"),
						Output:      filepath.Join(rec, "labels.txt"),
						CropDir:     filepath.Join(rec, "images"),
						ImageDir:    filepath.Join(det, "images"),
						ImageWidth:  size,
						ImageHeight: size,
					},
				})
			}
		}
	}
	return jobs
}

func newBatchCommand(a *app) *cobra.Command {
	var (
		baseDir string
		project string
		splits  []string
		colors  []string
		sizes   []int
		skipDet bool
		skipRec bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert every split of Roboflow YOLOv8 exports to detection and recognition labels",
		Long: `Runs the YOLO detection and recognition conversions for every combination of split,
color and size. Each export lives in <dir>/<project>_<size>x<size>_<color> and its images are
de-normalized with the size as both width and height. Splits without a labels directory are
reported as skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				return errors.New("missing required option --project")
			}

			// Class maps are loaded once per export and shared by its splits.
			classMaps := make(map[string]ppocrconv.ClassLabelMap)
			var total ppocrconv.Report

			for _, job := range planBatch(baseDir, project, splits, colors, sizes) {
				logger := a.logger.With("dataset", job.Root, "split", job.Split)
				if _, err := os.Stat(job.Det.LabelDir); err != nil {
					logger.Warn("Skipping split without labels", "dir", job.Det.LabelDir, "error", err)
					total.Skipped = append(total.Skipped, ppocrconv.SkippedFile{Path: job.Det.LabelDir, Err: err})
					continue
				}

				opts := a.options()
				opts.Logger = logger

				if !skipDet {
					job.Det.Options = opts
					report, err := ppocrconv.YOLOToDetection(job.Det)
					total.Add(report)
					if err != nil {
						return err
					}
				}

				if !skipRec {
					classMap, ok := classMaps[job.ClassMapPath]
					if !ok {
						var err error
						if classMap, err = ppocrconv.LoadClassLabelMap(job.ClassMapPath); err != nil {
							return fmt.Errorf("failed to load the class labels: %w", err)
						}
						classMaps[job.ClassMapPath] = classMap
					}

					job.Rec.ClassMap = classMap
					job.Rec.CropExt = a.cfg.CropExt
					job.Rec.JPEGQuality = a.cfg.JPEGQuality
					job.Rec.Options = opts
					report, err := ppocrconv.YOLOToRecognition(job.Rec)
					total.Add(report)
					if err != nil {
						return err
					}
				}

				logger.Info("Conversion and cropping completed", "det", job.Det.Output, "rec", job.Rec.Output)
			}

			return a.finish(cmd, total)
		},
	}

	cmd.Flags().StringVar(&baseDir, "dir", ".", "the directory containing the exports")
	cmd.Flags().StringVar(&project, "project", "", "the project name prefix of the export directories")
	cmd.Flags().StringSliceVar(&splits, "splits", []string{"train", "valid", "test"}, "the dataset splits")
	cmd.Flags().StringSliceVar(&colors, "colors", []string{"rgb"}, "the color variants")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{320}, "the square image sizes")
	cmd.Flags().BoolVar(&skipDet, "skip-det", false, "do not write detection labels")
	cmd.Flags().BoolVar(&skipRec, "skip-rec", false, "do not write recognition labels")
	cmd.Flags().String("crop-ext", ppocrconv.DefaultCropExt, "the crop encoding (jpg, png, bmp, gif, tif, webp)")
	cmd.Flags().Int("jpeg-quality", ppocrconv.DefaultJPEGQuality, "the quality of jpg and webp crops [1, 100]")

	return cmd
}
