package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/esm-tools/fesomdata"
	"github.com/esm-tools/fesomdata/fetch"
	"github.com/kovetskiy/lorg"
	"github.com/reconquest/pkg/log"
	"github.com/urfave/cli/v3"
)

// Setup applies the global flags before any subcommand runs.
func Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := SetLogLevel(cmd); err != nil {
		return ctx, err
	}

	if cmd.String("color") == "never" {
		log.GetLogger().SetFormat(
			lorg.NewFormat(
				`${time:2006-01-02 15:04:05.000} ${level:%s:left:true} ${prefix}%s`,
			),
		)
		log.GetLogger().SetOutput(os.Stderr)
	}

	return ctx, nil
}

// RunList prints the registered dataset names, one per line, or as a
// JSON array with --json.
func RunList(ctx context.Context, cmd *cli.Command) error {
	names := fesomdata.AvailableDatasets()

	if cmd.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(names)
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}

// RunInfo prints the registry record of one dataset.
func RunInfo(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: fesomdata info <name>")
	}

	dataset, err := fesomdata.OpenDataset(name)
	if err != nil {
		return err
	}

	record := dataset.Record()

	fmt.Printf("name:        %s\n", dataset.Name())
	fmt.Printf("title:       %s\n", record.Title)
	fmt.Printf("archive:     %s\n", record.Archive)
	fmt.Printf("url:         %s\n", record.URL)
	fmt.Printf("sha256:      %s\n", record.SHA256)
	fmt.Printf("output glob: %s\n", record.OutputGlob)

	if record.Mesh.Git != "" {
		fmt.Printf("mesh:        %s (git: %s)\n", record.Mesh.Dir, record.Mesh.Git)
	} else {
		fmt.Printf("mesh:        %s\n", record.Mesh.Dir)
	}

	versions := make([]string, 0, len(record.Configs))
	for version := range record.Configs {
		versions = append(versions, version)
	}

	sort.Strings(versions)

	fmt.Printf("configs:     %s\n", strings.Join(versions, ", "))

	return nil
}

// RunFetch downloads and verifies the real archives of the named
// datasets into the cache, optionally extracting them.
func RunFetch(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("usage: fesomdata fetch <name>...")
	}

	fatalErrorHandler := NewErrorHandler(cmd.Bool("continue-on-error"))

	fetcher, err := fesomdata.NewFetcher(fetchOptions(cmd)...)
	if err != nil {
		return err
	}

	for _, name := range names {
		dataset, err := fesomdata.OpenDataset(name)
		if err != nil {
			fatalErrorHandler.Handle(err, "unable to open dataset %q", name)
			continue
		}

		archive := dataset.Record().Archive

		path, err := fetcher.Fetch(ctx, archive)
		if err != nil {
			fatalErrorHandler.Handle(err, "unable to fetch archive %q", archive)
			continue
		}

		if dir := cmd.String("extract"); dir != "" {
			dest := filepath.Join(dir, name)

			if _, err := fetcher.FetchAndExtract(ctx, archive, dest); err != nil {
				fatalErrorHandler.Handle(err, "unable to extract archive %q", archive)
				continue
			}

			log.Infof(nil, "archive %s extracted into %s", archive, dest)
		}

		fmt.Println(path)
	}

	return nil
}

// RunDataDir materializes the data directory of one dataset and prints
// its path. With --real-data (or FESOMDATA_USE_REAL_DATA) the real
// archive is fetched and extracted; otherwise the stub tree is
// generated.
func RunDataDir(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: fesomdata datadir <name>")
	}

	dataset, err := fesomdata.OpenDataset(name)
	if err != nil {
		return err
	}

	dir, err := dataset.DataDir(ctx, dataOptions(cmd)...)
	if err != nil {
		return err
	}

	fmt.Println(dir)

	return nil
}

// RunStub generates the stub data tree of one dataset into --output.
func RunStub(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: fesomdata stub <name> --output <dir>")
	}

	output := cmd.String("output")
	if output == "" {
		return fmt.Errorf("the --output flag is required")
	}

	dataset, err := fesomdata.OpenDataset(name)
	if err != nil {
		return err
	}

	dir, err := dataset.DataDir(
		ctx,
		fesomdata.WithDir(output),
		fesomdata.WithStubData(),
	)
	if err != nil {
		return err
	}

	log.Infof(nil, "stub data for dataset %q generated", name)
	fmt.Println(dir)

	return nil
}

// RunPath prints the cache path of a dataset's archive, failing when the
// archive has not been fetched yet.
func RunPath(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: fesomdata path <name>")
	}

	dataset, err := fesomdata.OpenDataset(name)
	if err != nil {
		return err
	}

	fetcher, err := fesomdata.NewFetcher(fetchOptions(cmd)...)
	if err != nil {
		return err
	}

	path, cached, err := fetcher.Path(dataset.Record().Archive)
	if err != nil {
		return err
	}

	if !cached {
		return fmt.Errorf(
			"archive %q is not in the cache, run 'fesomdata fetch %s' first",
			dataset.Record().Archive, name,
		)
	}

	fmt.Println(path)

	return nil
}

func dataOptions(cmd *cli.Command) []fesomdata.Option {
	var opts []fesomdata.Option
	if cmd.Bool("real-data") {
		opts = append(opts, fesomdata.WithRealData())
	}
	if dir := cmd.String("cache-dir"); dir != "" {
		opts = append(opts, fesomdata.WithCacheDir(dir))
	}
	if dir := cmd.String("dir"); dir != "" {
		opts = append(opts, fesomdata.WithDir(dir))
	}

	return opts
}

func fetchOptions(cmd *cli.Command) []fetch.Option {
	var opts []fetch.Option
	if dir := cmd.String("cache-dir"); dir != "" {
		opts = append(opts, fetch.WithCacheDir(dir))
	}

	return opts
}

func ConfigFilePath() string {
	fp, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(fp, "fesomdata.toml")
}

func SetLogLevel(cmd *cli.Command) error {
	logLevel := cmd.String("log-level")
	switch strings.ToUpper(logLevel) {
	case lorg.LevelTrace.String():
		log.SetLevel(lorg.LevelTrace)
	case lorg.LevelDebug.String():
		log.SetLevel(lorg.LevelDebug)
	case lorg.LevelInfo.String():
		log.SetLevel(lorg.LevelInfo)
	case lorg.LevelWarning.String():
		log.SetLevel(lorg.LevelWarning)
	case lorg.LevelError.String():
		log.SetLevel(lorg.LevelError)
	case lorg.LevelFatal.String():
		log.SetLevel(lorg.LevelFatal)
	default:
		return fmt.Errorf("unknown log level: %s", logLevel)
	}

	return nil
}
