package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/meld/pkg/blend"
	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Define styles using lipgloss
var (
	searchHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86")).
				Margin(0, 0, 1, 0)

	recordTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))

	sourceTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Italic(true)

	recordMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	summaryLineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("32")).
				Margin(1, 0, 0, 0)

	noResultsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var titleCaser = cases.Title(language.English)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the blended backends",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Position of the first result",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "count",
				Usage: "Print only the total number of results",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("a search query is required")
			}
			return searchBlended(ctx, c.String("config"), query, c.Int("offset"), c.Int("limit"), c.Bool("count"))
		},
	}
}

func searchBlended(ctx context.Context, configPath, query string, offset, limit int, countOnly bool) error {
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

	if countOnly {
		// limit 0 is a count-only probe: both backends report totals
		// without shipping records
		results, err := blender.SearchBlended(ctx, core.NewQuery(query), 0, 0)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		fmt.Println(summaryLineStyle.Render(formatCountLine(query, results.Total())))
		return nil
	}

	results, err := blender.SearchBlended(ctx, core.NewQuery(query), offset, limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Println(searchHeaderStyle.Render(fmt.Sprintf("Results for %q", query)))

	if results.Len() == 0 {
		fmt.Println(noResultsStyle.Render("No results found"))
		return nil
	}

	for i, record := range results.Records() {
		position := offset + i + 1
		fmt.Printf("%d. %s %s\n", position,
			recordTitleStyle.Render(record.Title()),
			sourceTagStyle.Render("["+record.Source()+"]"))
		if text := record.Text(); text != "" {
			fmt.Printf("   %s\n", recordMetaStyle.Render(firstLine(text)))
		}
	}

	fmt.Println(summaryLineStyle.Render(formatSummary(results, offset, limit)))
	return nil
}

func formatCountLine(query string, total int) string {
	noun := "results"
	if total == 1 {
		noun = "result"
	}
	return fmt.Sprintf("%d %s for %q", total, noun, query)
}

func formatSummary(results *blend.Collection, offset, limit int) string {
	summary := fmt.Sprintf("Showing %d-%d of %d (%s: %d, %s: %d)",
		offset+1, offset+results.Len(), results.Total(),
		titleCaser.String(primaryName), results.PrimaryCount(),
		titleCaser.String(secondaryName), results.SecondaryCount())
	if results.Len() < limit {
		summary += " - end of results"
	}
	return summary
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 120 {
		text = text[:117] + "..."
	}
	return text
}
