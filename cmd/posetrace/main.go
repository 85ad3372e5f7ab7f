// Command posetrace post-processes pose model output: it smooths landmark
// trajectories, estimates the movement scale and renders per-frame poses
// with the hip offset that keeps a walking subject centred.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/posetrace/internal/config"
	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/version"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagDB       = "db"
	flagOut      = "out"
	flagLines    = "lines"
	flagScale    = "scale"
	flagPolicy   = "policy"
	flagSave     = "save"
	flagSession  = "session"
	flagDir      = "dir"
	flagJoint    = "joint"
	flagAxis     = "axis"
	flagSpeed    = "speed"
	flagDuration = "duration"
	flagStart    = "start"

	metadataTuning = "tuning"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "posetrace",
		Usage:    "smooth, scale and replay body landmark trajectories",
		Version:  version.String(),
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load tuning configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagDB,
				Value: "posetrace.db",
				Usage: "session store `PATH`",
			},
		},
		Before: func(c *cli.Context) error {
			monitoring.SetVerbose(c.Bool(flagDebug))

			tuning := config.DefaultTuningConfig()
			if path := c.String(flagConfig); path != "" {
				loaded, err := config.LoadTuningConfig(path)
				if err != nil {
					return err
				}
				tuning = loaded
				monitoring.Logf("loaded tuning config from %s", path)
			}
			c.App.Metadata[metadataTuning] = tuning
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "reconstruct every frame and print landmarks and hip offsets as JSON",
				ArgsUsage: "[pose.json]",
				Flags: append([]cli.Flag{
					sessionFlag(),
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write output to `FILE` instead of stdout"},
					&cli.BoolFlag{Name: flagLines, Usage: "write one JSON object per frame"},
					&cli.BoolFlag{Name: flagSave, Usage: "store the capture as a new session"},
				}, scaleFlags()...),
				Action: ProcessAction,
			},
			{
				Name:      "report",
				Usage:     "write a channel plot (PNG) and a hip trajectory chart (HTML)",
				ArgsUsage: "[pose.json]",
				Flags: append([]cli.Flag{
					sessionFlag(),
					&cli.StringFlag{Name: flagDir, Value: "report", Usage: "output `DIR`"},
					&cli.StringFlag{Name: flagJoint, Value: "left_hip", Usage: "joint to plot"},
					&cli.StringFlag{Name: flagAxis, Value: "x", Usage: "coordinate to plot: x, y or z"},
				}, scaleFlags()...),
				Action: ReportAction,
			},
			{
				Name:      "play",
				Usage:     "play the reconstructed trajectory, printing each displayed frame",
				ArgsUsage: "[pose.json]",
				Flags: append([]cli.Flag{
					sessionFlag(),
					&cli.Float64Flag{Name: flagSpeed, Usage: "playback speed (default from config)"},
					&cli.DurationFlag{Name: flagDuration, Usage: "stop after `DURATION` (default: until interrupted)"},
					&cli.IntFlag{Name: flagStart, Usage: "start playback at `FRAME`"},
				}, scaleFlags()...),
				Action: PlayAction,
			},
			{
				Name:  "sessions",
				Usage: "work with stored sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list stored sessions, newest first",
						Action: ListSessionsAction,
					},
					{
						Name:      "show",
						Usage:     "show one session",
						ArgsUsage: "<id>",
						Action:    ShowSessionAction,
					},
					{
						Name:      "delete",
						Usage:     "delete a session and its landmarks",
						ArgsUsage: "<id>",
						Action:    DeleteSessionAction,
					},
					{
						Name:      "scale",
						Usage:     "set or clear the stored movement scale override",
						ArgsUsage: "<id> <value|clear>",
						Action:    ScaleSessionAction,
					},
				},
			},
			{
				Name:  "migrate",
				Usage: "manage the session store schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: MigrateUpAction},
					{Name: "down", Usage: "roll back the latest migration", Action: MigrateDownAction},
					{Name: "version", Usage: "print the schema version", Action: MigrateVersionAction},
				},
			},
		},
	}
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagSession,
		Usage: "read the capture from stored session `ID` instead of a file",
	}
}

func scaleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  flagScale,
			Usage: "movement scale override (world units per normalized image unit)",
		},
		&cli.StringFlag{
			Name:  flagPolicy,
			Usage: "scale policy: override or estimate (default from config)",
		},
	}
}
