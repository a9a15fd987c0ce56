package main

import (
	"context"
	"log"
	"os"

	"github.com/rubiojr/meld/cmd"
	"github.com/rubiojr/meld/pkg/config"
	meldlog "github.com/rubiojr/meld/pkg/log"
	"github.com/urfave/cli/v3"

	_ "github.com/rubiojr/meld/pkg/backends/github"
	_ "github.com/rubiojr/meld/pkg/backends/remote"
	_ "github.com/rubiojr/meld/pkg/backends/sqlite"
)

func main() {
	app := &cli.Command{
		Name:  "meld",
		Usage: "Blend ranked results from two search backends into one stream",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("debug") {
				meldlog.SetGlobalDebug(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.SearchCommand(),
			cmd.RetrieveCommand(),
			cmd.IndexCommand(),
			cmd.BackendCommand(),
			cmd.ServeCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
