package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
	"github.com/urfave/cli/v3"
)

// indexBatchSize bounds how many records go into one transaction.
const indexBatchSize = 500

// IndexCommand creates the index command
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Load records into the primary backend from a JSON lines file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("exactly one input file is required")
			}
			return indexRecords(ctx, c.String("config"), c.Args().First())
		},
	}
}

// indexRecord is one line of the input file.
type indexRecord struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

func indexRecords(ctx context.Context, configPath, inputPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	registry := core.GetGlobalRegistry()
	defer func() {
		if err := registry.Close(); err != nil {
			fmt.Printf("Warning: failed to close registry: %v\n", err)
		}
	}()

	if err := createBackendsFromConfig(registry, cfg); err != nil {
		return err
	}

	primary, err := registry.GetBackend(primaryName)
	if err != nil {
		return err
	}
	indexer, ok := primary.(core.Indexer)
	if !ok {
		return fmt.Errorf("primary backend %s does not support indexing", primary.Type())
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var batch []core.Record
	indexed := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var in indexRecord
		if err := json.Unmarshal(raw, &in); err != nil {
			return fmt.Errorf("parsing line %d: %w", line, err)
		}
		if in.ID == "" {
			return fmt.Errorf("line %d: record id is required", line)
		}

		batch = append(batch, core.NewGenericRecord(in.ID, in.Title, in.Text, primary.Name(), in.Metadata))
		if len(batch) >= indexBatchSize {
			if err := indexer.Index(ctx, batch); err != nil {
				return fmt.Errorf("indexing batch ending at line %d: %w", line, err)
			}
			indexed += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	if len(batch) > 0 {
		if err := indexer.Index(ctx, batch); err != nil {
			return fmt.Errorf("indexing final batch: %w", err)
		}
		indexed += len(batch)
	}

	fmt.Printf("Indexed %d records into %s\n", indexed, primary.Name())
	return nil
}
