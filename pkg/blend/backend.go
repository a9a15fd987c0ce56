package blend

import (
	"context"
	"fmt"
	"sync"

	"github.com/rubiojr/meld/pkg/core"
	"github.com/rubiojr/meld/pkg/log"
)

// BackendType identifies blended backends in search results and logs.
const BackendType = "blend"

// Backend merges two underlying search backends into one. It satisfies
// core.Backend itself, so a blended pair can be used anywhere a single
// adapter is expected.
//
// All state below is set at construction and read-only afterwards; every
// search request carries its own bookkeeping, so one Backend is safe for
// concurrent use.
type Backend struct {
	name       string
	primary    core.Backend
	secondary  core.Backend
	translator QueryTranslator
	settings   Settings
	logger     *log.Logger
}

// New creates a blend backend over a primary and a secondary adapter.
// A nil translator defaults to identity.
func New(name string, primary, secondary core.Backend, translator QueryTranslator, settings Settings) *Backend {
	if translator == nil {
		translator = IdentityTranslator{}
	}
	if settings.BlockSize <= 0 {
		settings.BlockSize = DefaultBlockSize
	}
	if settings.BlendLimit < minBlendLimit {
		settings.BlendLimit = minBlendLimit
	}
	return &Backend{
		name:       name,
		primary:    primary,
		secondary:  secondary,
		translator: translator,
		settings:   settings,
		logger:     log.ForComponent(BackendType),
	}
}

func (b *Backend) Type() string { return BackendType }
func (b *Backend) Name() string { return b.name }

// Primary returns the backend serving even-numbered blocks.
func (b *Backend) Primary() core.Backend { return b.primary }

// Secondary returns the backend serving odd-numbered blocks.
func (b *Backend) Secondary() core.Backend { return b.secondary }

// Close is a no-op: the lifecycles of the underlying adapters are owned by
// whoever created them (normally the registry).
func (b *Backend) Close() error { return nil }

// Search returns the merged window as a plain collection, satisfying the
// adapter contract. Callers that need per-backend attribution use
// SearchBlended.
func (b *Backend) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	merged, err := b.SearchBlended(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return merged.ToCollection(), nil
}

// fetchResult captures one backend's initial fetch outcome. Collecting
// explicit per-backend results up front keeps the failure combination rules
// in one place instead of relying on error propagation order.
type fetchResult struct {
	collection *core.Collection
	err        error
}

// SearchBlended returns a blended collection with at most limit records
// representing absolute positions [offset, offset+limit) of the merged
// ranking. It never fails as long as at least one backend succeeds; when
// both initial fetches fail, the primary's error is the reported cause.
func (b *Backend) SearchBlended(ctx context.Context, query core.Query, offset, limit int) (*Collection, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	secondaryQuery := b.translator.Translate(query)
	fetchSize := InitialFetchSize(offset, limit, b.settings.BlendLimit)

	// The initial fetches are independent; run them concurrently with
	// isolated failure capture.
	var primary, secondary fetchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collection, err := b.primary.Search(ctx, query, 0, fetchSize)
		primary = fetchResult{collection, err}
	}()
	go func() {
		defer wg.Done()
		collection, err := b.secondary.Search(ctx, secondaryQuery, 0, fetchSize)
		secondary = fetchResult{collection, err}
	}()
	wg.Wait()

	if primary.err != nil && secondary.err != nil {
		return nil, fmt.Errorf("searching primary backend %s: %w", b.primary.Name(), primary.err)
	}
	if primary.err != nil {
		b.logger.Warnf("primary backend %s failed, blending from %s only: %v",
			b.primary.Name(), b.secondary.Name(), primary.err)
		primary.collection = nil
	}
	if secondary.err != nil {
		b.logger.Warnf("secondary backend %s failed, blending from %s only: %v",
			b.secondary.Name(), b.primary.Name(), secondary.err)
		secondary.collection = nil
	}

	merged := NewCollection(primary.collection, secondary.collection, offset, limit, b.settings.BlockSize)
	merged.SetSourceIdentifier(b.name)

	// Windows inside the oversampled zone are already covered, and a
	// count-only query never fills.
	if limit == 0 || offset+limit <= b.settings.BlendLimit {
		return merged, nil
	}

	b.fill(ctx, merged, query, secondaryQuery, offset, limit)
	return merged, nil
}

// fillCursor is the per-backend sliding cache used during the round-robin
// fill: the records of the most recently fetched block and the absolute
// per-backend offset of its first record. It lives on the fill loop's
// stack only.
type fillCursor struct {
	start   int
	records []core.Record
}

// fill completes the window [offset, offset+limit) with records fetched
// lazily, block by block, from whichever backend the schedule attributes
// each position to. A backend that fails or comes up short mid-fill is
// treated as exhausted for the rest of the request; when both sides are
// exhausted the result is truncated below the requested limit, which
// callers must read as end of results.
func (b *Backend) fill(ctx context.Context, merged *Collection, query, secondaryQuery core.Query, offset, limit int) {
	start := offset + merged.Len()
	end := offset + limit
	if start >= end {
		return
	}

	primaryTotal := merged.primaryTotal
	secondaryTotal := merged.secondaryTotal

	// Replay the schedule over every position before the fill start to
	// compute the per-backend starting offsets: how many primary- and
	// secondary-attributed slots precede it. Purely in-memory, honoring the
	// same exhaustion fallback as the fill itself. O(start), which is fine
	// for pagination-sized offsets.
	primaryOffset, secondaryOffset := 0, 0
	for pos := 0; pos < start; pos++ {
		usePrimary := merged.PrimaryAt(pos)
		if usePrimary {
			if primaryOffset >= primaryTotal {
				if secondaryOffset >= secondaryTotal {
					break
				}
				usePrimary = false
			}
		} else {
			if secondaryOffset >= secondaryTotal {
				if primaryOffset >= primaryTotal {
					break
				}
				usePrimary = true
			}
		}
		if usePrimary {
			primaryOffset++
		} else {
			secondaryOffset++
		}
	}

	primaryCursor := fillCursor{start: -1}
	secondaryCursor := fillCursor{start: -1}

	for pos := start; pos < end; pos++ {
		usePrimary := merged.PrimaryAt(pos)
		if usePrimary {
			if primaryOffset >= primaryTotal {
				if secondaryOffset >= secondaryTotal {
					return
				}
				usePrimary = false
			}
		} else {
			if secondaryOffset >= secondaryTotal {
				if primaryOffset >= primaryTotal {
					return
				}
				usePrimary = true
			}
		}

		var record core.Record
		var err error
		if usePrimary {
			record, err = b.recordAt(ctx, b.primary, query, primaryOffset, &primaryCursor)
		} else {
			record, err = b.recordAt(ctx, b.secondary, secondaryQuery, secondaryOffset, &secondaryCursor)
		}

		if err != nil || record == nil {
			// Mark the source exhausted and retry the position against the
			// other one. Failed calls are not reissued within the request.
			if usePrimary {
				if err != nil {
					b.logger.Warnf("primary backend %s failed during fill: %v", b.primary.Name(), err)
				}
				primaryTotal = primaryOffset
			} else {
				if err != nil {
					b.logger.Warnf("secondary backend %s failed during fill: %v", b.secondary.Name(), err)
				}
				secondaryTotal = secondaryOffset
			}
			pos--
			continue
		}

		if usePrimary {
			primaryOffset++
		} else {
			secondaryOffset++
		}
		merged.Add(record, usePrimary)
	}
}

// recordAt serves the record at the given per-backend offset, refreshing
// the sliding cache with a fresh block-sized fetch when the offset falls
// outside the cached block. A nil record with nil error means the backend
// delivered fewer records than its reported total.
func (b *Backend) recordAt(ctx context.Context, backend core.Backend, query core.Query, offset int, cursor *fillCursor) (core.Record, error) {
	if cursor.start < 0 || offset < cursor.start || offset >= cursor.start+len(cursor.records) {
		collection, err := backend.Search(ctx, query, offset, b.settings.BlockSize)
		if err != nil {
			return nil, err
		}
		cursor.start = offset
		cursor.records = collection.Records()
	}
	idx := offset - cursor.start
	if idx >= len(cursor.records) {
		return nil, nil
	}
	return cursor.records[idx], nil
}

// Retrieve looks the record up in the primary backend first and falls back
// to the secondary when the primary comes up empty or fails. A record found
// in neither backend yields an empty collection, not an error.
func (b *Backend) Retrieve(ctx context.Context, id string) (*core.Collection, error) {
	primary, primaryErr := b.primary.Retrieve(ctx, id)
	if primaryErr == nil && primary.Len() > 0 {
		return primary, nil
	}
	if primaryErr != nil {
		b.logger.Warnf("primary backend %s failed retrieving %s: %v", b.primary.Name(), id, primaryErr)
	}

	secondary, secondaryErr := b.secondary.Retrieve(ctx, id)
	if secondaryErr != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("retrieving %s from primary backend %s: %w", id, b.primary.Name(), primaryErr)
		}
		b.logger.Warnf("secondary backend %s failed retrieving %s: %v", b.secondary.Name(), id, secondaryErr)
		return primary, nil
	}
	return secondary, nil
}

// RetrieveBatch resolves ids against the primary backend in one call, then
// asks the secondary for whatever is still missing: through its native
// batch capability when it has one, one Retrieve per id otherwise. Primary
// hits come first in primary order, then secondary resolutions in the order
// they resolved. Ids found in neither backend are simply absent.
func (b *Backend) RetrieveBatch(ctx context.Context, ids []string) (*core.Collection, error) {
	records := make([]core.Record, 0, len(ids))
	found := make(map[string]bool, len(ids))

	primary, primaryErr := retrieveBatchFrom(ctx, b.primary, ids)
	if primaryErr != nil {
		b.logger.Warnf("primary backend %s failed batch retrieval: %v", b.primary.Name(), primaryErr)
	} else {
		for _, record := range primary.Records() {
			if !found[record.ID()] {
				found[record.ID()] = true
				records = append(records, record)
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		secondary, secondaryErr := retrieveBatchFrom(ctx, b.secondary, missing)
		if secondaryErr != nil {
			if primaryErr != nil {
				return nil, fmt.Errorf("batch retrieving from primary backend %s: %w", b.primary.Name(), primaryErr)
			}
			b.logger.Warnf("secondary backend %s failed batch retrieval: %v", b.secondary.Name(), secondaryErr)
		} else {
			for _, record := range secondary.Records() {
				if !found[record.ID()] {
					found[record.ID()] = true
					records = append(records, record)
				}
			}
		}
	}

	return core.NewCollection(records, len(records)), nil
}

// retrieveBatchFrom uses the backend's native batch capability when it
// exposes one, and degrades to one Retrieve call per id otherwise.
func retrieveBatchFrom(ctx context.Context, backend core.Backend, ids []string) (*core.Collection, error) {
	if batcher, ok := backend.(core.BatchRetriever); ok {
		return batcher.RetrieveBatch(ctx, ids)
	}

	records := make([]core.Record, 0, len(ids))
	for _, id := range ids {
		collection, err := backend.Retrieve(ctx, id)
		if err != nil {
			return nil, err
		}
		if record := collection.First(); record != nil {
			records = append(records, record)
		}
	}
	return core.NewCollection(records, len(records)), nil
}
