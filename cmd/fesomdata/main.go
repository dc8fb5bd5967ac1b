package main

import (
	"context"
	"os"

	"github.com/esm-tools/fesomdata/util"
	"github.com/reconquest/pkg/log"
	"github.com/urfave/cli/v3"
)

const (
	version = "0.1.0"
	usage   = "packaged FESOM test datasets for the esm-tools tutorial"

	description = `Fesomdata bundles small FESOM ocean model test datasets and serves ` +
		`them to the esm-tools tutorial. By default every dataset is generated ` +
		`as a stub tree from its embedded manifest; the real archives can be ` +
		`fetched, verified and cached with the fetch subcommand or the ` +
		`--real-data flag.`
)

func main() {
	cmd := &cli.Command{
		Name:                  "fesomdata",
		Usage:                 usage,
		Description:           description,
		Version:               version,
		Flags:                 util.Flags,
		Before:                util.Setup,
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the available dataset names.",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the names as a JSON array.",
					},
				},
				Action: util.RunList,
			},
			{
				Name:      "info",
				Usage:     "show the registry record of a dataset.",
				ArgsUsage: "<name>",
				Action:    util.RunInfo,
			},
			{
				Name:      "fetch",
				Usage:     "download and verify real dataset archives into the cache.",
				ArgsUsage: "<name>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "extract",
						Usage: "extract fetched archives into the given directory.",
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "don't exit if a dataset fails, continue with the remaining ones.",
					},
				},
				Action: util.RunFetch,
			},
			{
				Name:      "stub",
				Usage:     "generate the stub data tree of a dataset.",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "directory to generate the stub tree in.",
						Required: true,
					},
				},
				Action: util.RunStub,
			},
			{
				Name:      "datadir",
				Usage:     "materialize the data directory of a dataset and print its path.",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "materialize into the given directory instead of the cache.",
					},
				},
				Action: util.RunDataDir,
			},
			{
				Name:      "path",
				Usage:     "print the cached archive path of a dataset.",
				ArgsUsage: "<name>",
				Action:    util.RunPath,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
