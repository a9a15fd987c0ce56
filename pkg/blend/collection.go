package blend

import (
	"github.com/rubiojr/meld/pkg/core"
)

// Collection is the merged, paginated result container. It owns the
// combined total, the visible records for the requested window and the
// per-backend attribution bookkeeping built up during staging and fill.
//
// A Collection is request-scoped: it is created fresh for every search and
// mutated only by the orchestrator that owns it.
type Collection struct {
	records   []core.Record
	total     int
	blockSize int

	// per-backend totals as reported by the initial fetch; a failed backend
	// contributes 0 so the schedule degenerates to the surviving source
	primaryTotal   int
	secondaryTotal int

	// visible records sourced from each backend
	primaryCount   int
	secondaryCount int

	sourceID string
}

// NewCollection initializes a blended collection from the initial
// oversampled fetches and stages as much of the window [offset,
// offset+limit) as those fetches cover. Either collection may be nil when
// that backend failed; the combined total then comes from the survivor.
//
// Staging walks the merged ranking from position 0, attributing each
// position via the interleaving schedule with exhaustion fallback: once a
// backend's total is consumed, remaining positions go to the other backend
// regardless of the nominal schedule. Staging stops early when the next
// scheduled record was not part of the initial fetch; the fill loop takes
// over from there.
func NewCollection(primary, secondary *core.Collection, offset, limit, blockSize int) *Collection {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	c := &Collection{blockSize: blockSize}

	var primaryRecords, secondaryRecords []core.Record
	if primary != nil {
		c.primaryTotal = primary.Total()
		primaryRecords = primary.Records()
	}
	if secondary != nil {
		c.secondaryTotal = secondary.Total()
		secondaryRecords = secondary.Records()
	}

	switch {
	case primary != nil && secondary != nil:
		c.total = c.primaryTotal
		if c.secondaryTotal > c.total {
			c.total = c.secondaryTotal
		}
	case primary != nil:
		c.total = c.primaryTotal
	case secondary != nil:
		c.total = c.secondaryTotal
	}

	primaryIdx, secondaryIdx := 0, 0
	for pos := 0; pos < offset+limit; pos++ {
		usePrimary := c.PrimaryAt(pos)
		if usePrimary {
			if primaryIdx >= c.primaryTotal {
				if secondaryIdx >= c.secondaryTotal {
					break // merged ranking exhausted
				}
				usePrimary = false
			}
		} else {
			if secondaryIdx >= c.secondaryTotal {
				if primaryIdx >= c.primaryTotal {
					break
				}
				usePrimary = true
			}
		}

		var record core.Record
		if usePrimary {
			if primaryIdx >= len(primaryRecords) {
				return c // next record is beyond the initial fetch
			}
			record = primaryRecords[primaryIdx]
			primaryIdx++
		} else {
			if secondaryIdx >= len(secondaryRecords) {
				return c
			}
			record = secondaryRecords[secondaryIdx]
			secondaryIdx++
		}

		if pos >= offset {
			c.Add(record, usePrimary)
		}
	}
	return c
}

// PrimaryAt reports whether the given absolute position is attributed to
// the primary backend, delegating to the planner so staging and fill share
// one schedule.
func (c *Collection) PrimaryAt(pos int) bool {
	return PrimaryAt(pos, c.blockSize)
}

// Add appends one record to the visible merged sequence. The caller
// guarantees arrival order is final display order.
func (c *Collection) Add(record core.Record, fromPrimary bool) {
	c.records = append(c.records, record)
	if fromPrimary {
		c.primaryCount++
	} else {
		c.secondaryCount++
	}
}

// Records returns the visible merged records in display order.
func (c *Collection) Records() []core.Record {
	return c.records
}

// Total returns the combined hit count: the larger of the two backend
// totals, or the surviving backend's total when one failed.
func (c *Collection) Total() int {
	return c.total
}

// Len returns the number of visible records.
func (c *Collection) Len() int {
	return len(c.records)
}

// PrimaryCount returns how many visible records came from the primary
// backend.
func (c *Collection) PrimaryCount() int {
	return c.primaryCount
}

// SecondaryCount returns how many visible records came from the secondary
// backend.
func (c *Collection) SecondaryCount() int {
	return c.secondaryCount
}

// SetSourceIdentifier records the identifier of the blend backend that
// produced this collection.
func (c *Collection) SetSourceIdentifier(id string) {
	c.sourceID = id
}

// SourceIdentifier returns the identifier set by SetSourceIdentifier.
func (c *Collection) SourceIdentifier() string {
	return c.sourceID
}

// ToCollection converts the blended result into a plain core collection so
// the blend backend satisfies the same contract as its adapters.
func (c *Collection) ToCollection() *core.Collection {
	return core.NewCollection(c.records, c.total)
}
