package blend

import (
	"fmt"
	"testing"

	"github.com/rubiojr/meld/pkg/core"
)

// rankedCollection builds a backend result: records id prefix+0..n-1 with
// the given reported total.
func rankedCollection(prefix string, fetched, total int) *core.Collection {
	records := make([]core.Record, 0, fetched)
	for i := 0; i < fetched; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		records = append(records, core.NewGenericRecord(id, id, "", prefix, nil))
	}
	return core.NewCollection(records, total)
}

func recordIDs(records []core.Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids
}

func assertIDs(t *testing.T, got []core.Record, want ...string) {
	t.Helper()
	gotIDs := recordIDs(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %d records %v, want %d %v", len(gotIDs), gotIDs, len(want), want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("record %d = %s, want %s (full: %v)", i, gotIDs[i], want[i], gotIDs)
		}
	}
}

func TestCollectionStagesFirstBlock(t *testing.T) {
	primary := rankedCollection("p", 10, 100)
	secondary := rankedCollection("s", 10, 50)

	c := NewCollection(primary, secondary, 0, 10, 10)

	assertIDs(t, c.Records(), "p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9")
	if c.Total() != 100 {
		t.Errorf("Total() = %d, want 100", c.Total())
	}
	if c.PrimaryCount() != 10 || c.SecondaryCount() != 0 {
		t.Errorf("counts = %d/%d, want 10/0", c.PrimaryCount(), c.SecondaryCount())
	}
}

func TestCollectionInterleavesBlocks(t *testing.T) {
	primary := rankedCollection("p", 20, 100)
	secondary := rankedCollection("s", 20, 100)

	// window straddles the primary/secondary block boundary
	c := NewCollection(primary, secondary, 5, 10, 10)

	assertIDs(t, c.Records(), "p5", "p6", "p7", "p8", "p9", "s0", "s1", "s2", "s3", "s4")
	if c.PrimaryCount() != 5 || c.SecondaryCount() != 5 {
		t.Errorf("counts = %d/%d, want 5/5", c.PrimaryCount(), c.SecondaryCount())
	}
}

func TestCollectionExhaustionRedirect(t *testing.T) {
	// primary runs out mid-block; remaining positions fall through to
	// secondary starting at its own offset 0
	primary := rankedCollection("p", 5, 5)
	secondary := rankedCollection("s", 10, 100)

	c := NewCollection(primary, secondary, 0, 10, 10)

	assertIDs(t, c.Records(), "p0", "p1", "p2", "p3", "p4", "s0", "s1", "s2", "s3", "s4")
	if c.Total() != 100 {
		t.Errorf("Total() = %d, want 100", c.Total())
	}
}

func TestCollectionBothExhausted(t *testing.T) {
	primary := rankedCollection("p", 3, 3)
	secondary := rankedCollection("s", 2, 2)

	c := NewCollection(primary, secondary, 0, 10, 10)

	// result set shorter than requested: 3 primary then 2 secondary
	assertIDs(t, c.Records(), "p0", "p1", "p2", "s0", "s1")
	if c.Total() != 3 {
		t.Errorf("Total() = %d, want 3", c.Total())
	}
}

func TestCollectionSurvivorOnly(t *testing.T) {
	tests := []struct {
		name      string
		primary   *core.Collection
		secondary *core.Collection
		wantTotal int
		wantFirst string
	}{
		{"secondary failed", rankedCollection("p", 10, 40), nil, 40, "p0"},
		{"primary failed", nil, rankedCollection("s", 10, 70), 70, "s0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollection(tt.primary, tt.secondary, 0, 10, 10)
			if c.Total() != tt.wantTotal {
				t.Errorf("Total() = %d, want %d", c.Total(), tt.wantTotal)
			}
			if c.Len() != 10 {
				t.Fatalf("Len() = %d, want 10", c.Len())
			}
			if c.Records()[0].ID() != tt.wantFirst {
				t.Errorf("first record = %s, want %s", c.Records()[0].ID(), tt.wantFirst)
			}
		})
	}
}

func TestCollectionBothMissing(t *testing.T) {
	c := NewCollection(nil, nil, 0, 10, 10)
	if c.Total() != 0 || c.Len() != 0 {
		t.Errorf("empty init: total=%d len=%d, want 0/0", c.Total(), c.Len())
	}
}

func TestCollectionStopsAtFetchBoundary(t *testing.T) {
	// totals promise more than the initial fetch delivered; staging must
	// stop rather than redirect, leaving the rest to the fill loop
	primary := rankedCollection("p", 25, 1000)
	secondary := rankedCollection("s", 3, 3)

	c := NewCollection(primary, secondary, 25, 10, 10)

	// positions 0-9 p0-9, 10-12 s0-2, 13-24 p10-21 (secondary exhausted),
	// then 25-27 p22-24; p25 was never fetched so staging ends there
	assertIDs(t, c.Records(), "p22", "p23", "p24")
}

func TestCollectionAddPreservesOrder(t *testing.T) {
	c := NewCollection(nil, nil, 0, 0, 10)
	c.Add(core.NewGenericRecord("a", "a", "", "primary", nil), true)
	c.Add(core.NewGenericRecord("b", "b", "", "secondary", nil), false)
	c.Add(core.NewGenericRecord("c", "c", "", "primary", nil), true)

	assertIDs(t, c.Records(), "a", "b", "c")
	if c.PrimaryCount() != 2 || c.SecondaryCount() != 1 {
		t.Errorf("counts = %d/%d, want 2/1", c.PrimaryCount(), c.SecondaryCount())
	}
}

func TestCollectionSourceIdentifier(t *testing.T) {
	c := NewCollection(nil, nil, 0, 0, 10)
	c.SetSourceIdentifier("blended")
	if c.SourceIdentifier() != "blended" {
		t.Errorf("SourceIdentifier() = %q, want %q", c.SourceIdentifier(), "blended")
	}
}
