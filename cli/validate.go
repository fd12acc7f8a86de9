package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/tapevision/config"
)

// ValidateAction loads a config and prints the values that will be used, or with --schema the
// config's JSON schema.
func ValidateAction(c *cli.Context) error {
	w := c.App.Writer
	if c.Bool(flagSchema) {
		out, err := config.SchemaJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	cfg, err := config.Read(configPath(c))
	if err != nil {
		return err
	}
	printConfig(w, cfg)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	cam := cfg.Camera()
	g := cfg.Geometry()
	opts := cfg.RunnerOptions()

	fmt.Fprintf(w, "config:      %s\n", cfg.ConfigFilePath)
	fmt.Fprintf(w, "team:        %d (%s)\n", cfg.Team, cfg.NTMode)
	fmt.Fprintf(w, "telemetry:   %s table %q\n", cfg.Telemetry.Address, cfg.Telemetry.Table)
	fmt.Fprintf(w, "camera:      %s at %s (%s) %dx%d\n", cam.Name, cam.Path, cam.Driver, cam.Width, cam.Height)
	for _, p := range cam.Properties {
		fmt.Fprintf(w, "  control:   %s=%d\n", p.Name, p.Value)
	}
	if cfg.Stream.Disabled {
		fmt.Fprintln(w, "stream:      disabled")
	} else {
		fmt.Fprintf(w, "stream:      %s (%s)\n", cfg.Stream.Address, cfg.Stream.Name)
	}
	fmt.Fprintf(w, "geometry:    tape height %g, separation %g, focal length %.2f px, fov %g deg\n",
		g.TapeHeight, g.TapeSeparation, g.FocalLength, g.FieldOfView)
	fmt.Fprintf(w, "baseline:    d1 %g d2 %g (d3 %.3f, theta3 %.2f deg)\n",
		g.Baseline.D1, g.Baseline.D2, g.Baseline.D3(), g.Baseline.Theta3())
	fmt.Fprintf(w, "filters:     min area %g, min width %d, legacy mean width %t\n",
		opts.Filters.MinArea, opts.Filters.MinWidth, opts.Filters.LegacyMeanWidth)
	fmt.Fprintf(w, "gap policy:  %s\n", opts.GapPolicy)
	fmt.Fprintf(w, "retry:       idle after %d failures, every %s\n", opts.MaxConsecutiveFailures, opts.RetryInterval)
	for _, key := range cfg.Unused {
		fmt.Fprintf(w, "unused key:  %s\n", key)
	}
}
