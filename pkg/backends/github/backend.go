// Package github implements a search backend over the GitHub repository
// search API. It is typically wired as the secondary backend: repository
// matches get blended into the primary index's results. It has no native
// batch retrieval, so batch lookups degrade to one request per id.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v73/github"
	"github.com/rubiojr/meld/pkg/core"
	"golang.org/x/oauth2"
)

func init() {
	core.RegisterBackendPrototype("github", &Backend{})
}

// searchPageCap is GitHub's hard per_page ceiling.
const searchPageCap = 100

type Config struct {
	Token    string `toml:"token"`
	Language string `toml:"language"`
}

func (c *Config) Validate() error {
	return nil
}

type Backend struct {
	config       *Config
	client       *github.Client
	instanceName string
}

func NewBackend(instanceName string, config interface{}) (core.Backend, error) {
	var ghConfig *Config
	if config == nil {
		ghConfig = &Config{}
	} else {
		var ok bool
		ghConfig, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for GitHub backend")
		}
	}

	var client *github.Client
	if ghConfig.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: ghConfig.Token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	return &Backend{
		config:       ghConfig,
		client:       client,
		instanceName: instanceName,
	}, nil
}

func (b *Backend) Type() string {
	return "github"
}

func (b *Backend) Name() string {
	return b.instanceName
}

func (b *Backend) ConfigType() interface{} {
	return &Config{}
}

func (b *Backend) SetConfig(config interface{}) error {
	if cfg, ok := config.(*Config); ok {
		b.config = cfg
		return nil
	}
	return fmt.Errorf("invalid config type for GitHub backend")
}

func (b *Backend) Factory(instanceName string, config interface{}) (core.Backend, error) {
	return NewBackend(instanceName, config)
}

func (b *Backend) Close() error {
	return nil
}

// searchQuery appends the configured language qualifier unless the caller
// already scoped the query themselves.
func (b *Backend) searchQuery(query core.Query) string {
	terms := strings.TrimSpace(query.Terms)
	if b.config.Language != "" && !strings.Contains(terms, "language:") {
		if terms == "" {
			return "language:" + b.config.Language
		}
		return terms + " language:" + b.config.Language
	}
	return terms
}

func (b *Backend) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	terms := b.searchQuery(query)
	if terms == "" {
		return core.EmptyCollection(), nil
	}

	if limit == 0 {
		opts := &github.SearchOptions{ListOptions: github.ListOptions{Page: 1, PerPage: 1}}
		result, _, err := b.client.Search.Repositories(ctx, terms, opts)
		if err != nil {
			return nil, fmt.Errorf("searching repositories: %w", err)
		}
		return core.NewCollection(nil, result.GetTotal()), nil
	}

	perPage := limit
	if perPage > searchPageCap {
		perPage = searchPageCap
	}

	// GitHub paginates with 1-based fixed-size pages, so an arbitrary
	// offset can straddle two of them.
	firstPage := offset/perPage + 1
	skip := offset % perPage

	records := make([]core.Record, 0, limit)
	total := 0
	for page := firstPage; len(records) < skip+limit; page++ {
		opts := &github.SearchOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}
		result, resp, err := b.client.Search.Repositories(ctx, terms, opts)
		if err != nil {
			return nil, fmt.Errorf("searching repositories: %w", err)
		}
		total = result.GetTotal()
		for _, repo := range result.Repositories {
			records = append(records, b.repoRecord(repo))
		}
		if resp.NextPage == 0 {
			break
		}
	}

	if skip >= len(records) {
		return core.NewCollection(nil, total), nil
	}
	records = records[skip:]
	if len(records) > limit {
		records = records[:limit]
	}
	return core.NewCollection(records, total), nil
}

// Retrieve expects ids of the form owner/repo. A missing repository yields
// an empty collection, matching the adapter contract.
func (b *Backend) Retrieve(ctx context.Context, id string) (*core.Collection, error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" {
		return core.EmptyCollection(), nil
	}

	repo, resp, err := b.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return core.EmptyCollection(), nil
		}
		return nil, fmt.Errorf("retrieving repository %s: %w", id, err)
	}

	record := b.repoRecord(repo)
	return core.NewCollection([]core.Record{record}, 1), nil
}

func (b *Backend) repoRecord(repo *github.Repository) core.Record {
	metadata := map[string]interface{}{
		"url":      repo.GetHTMLURL(),
		"language": repo.GetLanguage(),
		"stars":    repo.GetStargazersCount(),
		"forks":    repo.GetForksCount(),
	}
	return core.NewGenericRecord(
		repo.GetFullName(),
		repo.GetFullName(),
		repo.GetDescription(),
		b.instanceName,
		metadata,
	)
}
