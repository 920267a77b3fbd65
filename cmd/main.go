package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cocov-ci/prebuilt/commands"
)

func envs(base string) []string {
	return []string{"PREBUILT_" + base, base}
}

func main() {
	app := cli.NewApp()
	app.Name = "prebuilt"
	app.Usage = "Fetches pinned, prebuilt CI artifacts into a local output directory"
	app.Version = "0.1"
	app.DefaultCommand = "fetch"
	app.Authors = []*cli.Author{
		{Name: "Victor \"Vito\" Gama", Email: "hey@vito.io"},
	}
	app.Copyright = "Copyright (c) 2022-2023 - The Cocov Authors"
	app.Commands = []*cli.Command{
		{
			Name:      "fetch",
			Usage:     "Ensures a pinned artifact is present under the output directory",
			ArgsUsage: "<artifact-name> <repo> <commit>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output-dir", Aliases: []string{"O"}, EnvVars: envs("OUTPUT_DIR"), Required: false},
				&cli.StringFlag{Name: "store-mode", EnvVars: envs("STORE_MODE"), Required: false, Value: "buildomat"},
				&cli.StringFlag{Name: "store-url", EnvVars: envs("STORE_URL"), Required: false, Value: "https://buildomat.eng.oxide.computer"},
				&cli.StringFlag{Name: "s3-bucket-name", EnvVars: envs("S3_BUCKET_NAME"), Required: false},
				&cli.DurationFlag{Name: "timeout", EnvVars: envs("TIMEOUT"), Required: false, Value: 5 * time.Minute},
				&cli.BoolFlag{Name: "executable", EnvVars: envs("EXECUTABLE"), Required: false, Value: true},
			},
			Action: commands.Fetch,
		},
		{
			Name:  "serve",
			Usage: "Serves a local artifact mirror using the store's URL scheme",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "storage-path", EnvVars: envs("STORAGE_PATH"), Required: true},
				&cli.StringFlag{Name: "bind-address", EnvVars: envs("BIND_ADDRESS"), Required: false, Value: "0.0.0.0:5000"},
				&cli.Int64Flag{Name: "max-artifact-size-bytes", EnvVars: envs("MAX_ARTIFACT_SIZE_BYTES"), Required: false, Value: 0},
			},
			Action: commands.Serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println()
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}
