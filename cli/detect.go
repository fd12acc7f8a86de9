package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/tapevision/camera"
	"go.viam.com/tapevision/config"
	"go.viam.com/tapevision/rimage"
	"go.viam.com/tapevision/vision/pipeline"
	"go.viam.com/tapevision/vision/triangulation"
)

// DetectAction runs the pipeline over still images and prints one line per image.
func DetectAction(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no images given")
	}

	geometry := triangulation.DefaultGeometry()
	filters := pipeline.DefaultFilters()
	if path := c.String(flagConfig); path != "" {
		cfg, err := config.Read(path)
		if err != nil {
			return err
		}
		geometry = cfg.Geometry()
		filters = cfg.RunnerOptions().Filters
	}
	processor, err := pipeline.NewProcessor(geometry, filters)
	if err != nil {
		return err
	}

	outDir := c.String(flagOut)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return errors.Wrapf(err, "cannot create %q", outDir)
		}
	}

	src, err := camera.NewFileSource(paths, false)
	if err != nil {
		return err
	}
	//nolint:errcheck
	defer src.Close(c.Context)

	for {
		img, release, err := src.Read(c.Context)
		if errors.Is(err, io.EOF) {
			return nil
		}
		path := src.Current()
		if err != nil {
			if c.Context.Err() != nil || errors.Is(err, camera.ErrClosed) {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: %v\n", path, err)
			continue
		}
		res := processor.Process(c.Context, img)
		if res.Pose != nil {
			fmt.Fprintf(c.App.Writer, "%s: %s\n", path, res.Pose)
		} else {
			fmt.Fprintf(c.App.Writer, "%s: no target (%v)\n", path, res.Err)
		}
		if outDir != "" {
			out := filepath.Join(outDir, overlayName(path))
			if err := rimage.WriteImageToFile(out, pipeline.Annotate(img, res)); err != nil {
				release()
				return err
			}
		}
		release()
	}
}

func overlayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_overlay.png"
}
