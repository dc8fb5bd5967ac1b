package util

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	altsrctoml "github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var filename string

// Flags are the global flags, shared by every subcommand. Each one is
// also settable through a FESOMDATA_* environment variable or the TOML
// configuration file.
var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		Usage:   "set the log level. Possible values: TRACE, DEBUG, INFO, WARNING, ERROR, FATAL.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("FESOMDATA_LOG_LEVEL"), altsrctoml.TOML("log-level", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:    "color",
		Value:   "auto",
		Usage:   "display logs in color. Possible values: auto, never.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("FESOMDATA_COLOR"), altsrctoml.TOML("color", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:    "cache-dir",
		Value:   "",
		Usage:   "cache directory for downloaded archives (default: fesomdata under the user cache directory).",
		Sources: cli.NewValueSourceChain(cli.EnvVar("FESOMDATA_CACHE_DIR"), altsrctoml.TOML("cache-dir", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.BoolFlag{
		Name:    "real-data",
		Value:   false,
		Usage:   "work with real downloaded data instead of generated stub data.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("FESOMDATA_USE_REAL_DATA"), altsrctoml.TOML("real-data", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Value:       ConfigFilePath(),
		Usage:       "use the specified configuration file.",
		TakesFile:   true,
		Sources:     cli.NewValueSourceChain(cli.EnvVar("FESOMDATA_CONFIG")),
		Destination: &filename,
	},
}
