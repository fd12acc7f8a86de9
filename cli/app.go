// Package cli contains the tapevision command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/tapevision/config"
)

// Flags.
const (
	flagDebug  = "debug"
	flagOut    = "out"
	flagConfig = "config"
	flagSchema = "schema"
)

// NewApp returns the CLI with Writer set to out and ErrWriter set to errOut. Without a command
// it runs the vision loop, like run.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "tapevision",
		Usage:           "find retro-reflective tape targets and publish the heading and distance to them",
		HideHelpCommand: true,
		ArgsUsage:       "[config, default " + config.DefaultPath + "]",
		Action:          RunAction,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run the vision loop",
				ArgsUsage: "[config, default " + config.DefaultPath + "]",
				Action:    RunAction,
			},
			{
				Name:      "detect",
				Usage:     "solve still images and print the pose found in each",
				ArgsUsage: "image...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagConfig,
						Usage: "take the geometry and filters from `FILE` instead of the defaults",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write an annotated copy of every image to `DIR`",
					},
				},
				Action: DetectAction,
			},
			{
				Name:      "validate",
				Usage:     "check a config and print what will be used",
				ArgsUsage: "[config, default " + config.DefaultPath + "]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagSchema,
						Usage: "print the JSON schema of the config instead",
					},
				},
				Action: ValidateAction,
			},
		},
	}
}

func configPath(c *cli.Context) string {
	if path := c.Args().First(); path != "" {
		return path
	}
	return config.DefaultPath
}
