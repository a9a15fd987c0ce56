package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
	"github.com/urfave/cli/v3"
)

// RetrieveCommand creates the retrieve command
func RetrieveCommand() *cli.Command {
	return &cli.Command{
		Name:      "retrieve",
		Usage:     "Look up records by id across both backends",
		ArgsUsage: "<id> [id...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			ids := c.Args().Slice()
			if len(ids) == 0 {
				return fmt.Errorf("at least one record id is required")
			}
			return retrieveRecords(ctx, c.String("config"), ids)
		},
	}
}

func retrieveRecords(ctx context.Context, configPath string, ids []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := core.GetGlobalRegistry()
	defer func() {
		if err := registry.Close(); err != nil {
			fmt.Printf("Warning: failed to close registry: %v\n", err)
		}
	}()

	blender, err := buildBlender(registry, cfg)
	if err != nil {
		return err
	}

	var results *core.Collection
	if len(ids) == 1 {
		results, err = blender.Retrieve(ctx, ids[0])
	} else {
		results, err = blender.RetrieveBatch(ctx, ids)
	}
	if err != nil {
		return fmt.Errorf("retrieving: %w", err)
	}

	found := make(map[string]bool, results.Len())
	for _, record := range results.Records() {
		found[record.ID()] = true
		fmt.Printf("%s %s\n", recordTitleStyle.Render(record.Title()),
			sourceTagStyle.Render("["+record.Source()+"]"))
		if text := record.Text(); text != "" {
			fmt.Printf("  %s\n", recordMetaStyle.Render(firstLine(text)))
		}
	}

	for _, id := range ids {
		if !found[id] {
			fmt.Println(noResultsStyle.Render(fmt.Sprintf("%s: not found in either backend", id)))
		}
	}
	return nil
}
