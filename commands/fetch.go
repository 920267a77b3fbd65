package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cocov-ci/prebuilt/fetcher"
	"github.com/cocov-ci/prebuilt/logging"
	"github.com/cocov-ci/prebuilt/store"
)

func makeStore(ctx *cli.Context) (store.Client, error) {
	switch mode := ctx.String("store-mode"); mode {
	case "buildomat":
		return store.NewBuildomat(ctx.String("store-url"), ctx.Duration("timeout")), nil
	case "s3":
		return store.NewS3(ctx.String("s3-bucket-name"))
	default:
		return nil, fmt.Errorf("unknown store-mode %q (expected buildomat or s3)", mode)
	}
}

// splitArgs separates positional arguments from a trailing -O flag. Build
// scripts pass -O after the positionals, and urfave/cli stops parsing flags
// at the first positional argument, so the flag has to be picked up by hand.
func splitArgs(ctx *cli.Context) (positional []string, outputDir string, err error) {
	outputDir = ctx.String("output-dir")
	args := ctx.Args()
	for i := 0; i < args.Len(); i++ {
		a := args.Get(i)
		if a == "-O" || a == "--output-dir" {
			i++
			if i == args.Len() {
				return nil, "", fmt.Errorf("%s requires a value", a)
			}
			outputDir = args.Get(i)
			continue
		}
		positional = append(positional, a)
	}
	return positional, outputDir, nil
}

func Fetch(ctx *cli.Context) error {
	isDevelopment := os.Getenv("PREBUILT_DEV") == "true"
	logger, err := logging.InitializeLogger(isDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	args, outputDir, err := splitArgs(ctx)
	if err != nil {
		return err
	}

	if len(args) != 3 {
		return fmt.Errorf("usage: prebuilt fetch <artifact-name> <repo> <commit> [-O <output-dir>]")
	}

	spec := fetcher.Spec{
		Name:   args[0],
		Repo:   args[1],
		Commit: args[2],
	}

	if outputDir == "" {
		outputDir = filepath.Join("out", spec.Name)
	}

	client, err := makeStore(ctx)
	if err != nil {
		logger.Error("Store client initialization failed", zap.Error(err))
		return err
	}

	f := fetcher.New(client, logger)
	path, err := f.Ensure(spec, outputDir)
	if err != nil {
		logger.Error("Failed ensuring artifact", zap.Error(err))
		return err
	}

	if ctx.Bool("executable") {
		if err = fetcher.MarkExecutable(path); err != nil {
			logger.Error("Failed marking artifact as executable", zap.Error(err))
			return err
		}
	}

	logger.Info("Artifact ready", zap.String("path", path))

	// Scripts consume the resulting path from stdout.
	fmt.Println(path)
	return nil
}
