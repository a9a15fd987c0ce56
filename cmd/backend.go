package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
	"github.com/urfave/cli/v3"
)

// BackendCommand creates the backend command
func BackendCommand() *cli.Command {
	return &cli.Command{
		Name:  "backend",
		Usage: "Manage backends",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List available backend types and the configured pair",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listBackends(c.String("config"))
				},
			},
		},
	}
}

func listBackends(configPath string) error {
	registry := core.GetGlobalRegistry()

	types := registry.ListPrototypes()
	sort.Strings(types)

	fmt.Println("Available backend types:")
	for _, backendType := range types {
		fmt.Printf("  - %s\n", backendType)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("\nConfigured backends:")
	printRole(primaryName, cfg.Primary.Type)
	printRole(secondaryName, cfg.Secondary.Type)
	return nil
}

func printRole(role, backendType string) {
	if backendType == "" {
		fmt.Printf("  %s: (not configured)\n", role)
		return
	}
	fmt.Printf("  %s: %s\n", role, backendType)
}
