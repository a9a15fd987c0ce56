package blend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rubiojr/meld/pkg/core"
)

type searchCall struct {
	offset int
	limit  int
}

// fakeBackend serves a scripted ranked list and logs every search call so
// tests can assert how the fill loop paged through it. It has no native
// batch capability.
type fakeBackend struct {
	name      string
	records   []core.Record
	total     int
	searchErr error
	calls     []searchCall
}

func newFakeBackend(name, prefix string, total int) *fakeBackend {
	records := make([]core.Record, 0, total)
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		records = append(records, core.NewGenericRecord(id, id, "", name, nil))
	}
	return &fakeBackend{name: name, records: records, total: total}
}

func (f *fakeBackend) Type() string { return "fake" }
func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.calls = append(f.calls, searchCall{offset, limit})
	if offset >= len(f.records) {
		return core.NewCollection(nil, f.total), nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return core.NewCollection(f.records[offset:end], f.total), nil
}

func (f *fakeBackend) Retrieve(ctx context.Context, id string) (*core.Collection, error) {
	for _, record := range f.records {
		if record.ID() == id {
			return core.NewCollection([]core.Record{record}, 1), nil
		}
	}
	return core.EmptyCollection(), nil
}

// fakeBatchBackend adds the native batch capability on top of fakeBackend.
type fakeBatchBackend struct {
	*fakeBackend
	batchCalls [][]string
}

func (f *fakeBatchBackend) RetrieveBatch(ctx context.Context, ids []string) (*core.Collection, error) {
	f.batchCalls = append(f.batchCalls, ids)
	var records []core.Record
	for _, record := range f.records {
		for _, id := range ids {
			if record.ID() == id {
				records = append(records, record)
			}
		}
	}
	return core.NewCollection(records, len(records)), nil
}

func testSettings() Settings {
	return NewSettings(15, 10, 10) // BlendLimit 25, BlockSize 10
}

func TestSearchFastPathFirstPage(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	secondary := newFakeBackend("secondary", "s", 50)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	assertIDs(t, merged.Records(), "p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9")
	if merged.Total() != 100 {
		t.Errorf("Total() = %d, want 100", merged.Total())
	}
	if merged.SourceIdentifier() != "blended" {
		t.Errorf("SourceIdentifier() = %q, want blended", merged.SourceIdentifier())
	}

	// fast path: one oversampled fetch per backend, nothing else
	wantCalls := []searchCall{{0, 10}}
	assertCalls(t, "primary", primary.calls, wantCalls)
	assertCalls(t, "secondary", secondary.calls, wantCalls)
}

func TestSearchWindowInsideOversampledZone(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	secondary := newFakeBackend("secondary", "s", 100)
	b := New("blended", primary, secondary, nil, testSettings())

	// positions 15-24: tail of the secondary block then a primary block
	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 15, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	assertIDs(t, merged.Records(), "s5", "s6", "s7", "s8", "s9", "p10", "p11", "p12", "p13", "p14")
	assertCalls(t, "primary", primary.calls, []searchCall{{0, 25}})
	assertCalls(t, "secondary", secondary.calls, []searchCall{{0, 25}})
}

func TestSearchFillWithinInitialFetch(t *testing.T) {
	// offset+limit barely exceeds the blend limit but the oversampled
	// fetch still covers the whole window, so no fill fetches happen
	primary := newFakeBackend("primary", "p", 100)
	secondary := newFakeBackend("secondary", "s", 50)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 20, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	// positions 20-29 are an even block: primary records 10-19 (ten
	// primary slots and ten secondary slots precede the window)
	assertIDs(t, merged.Records(), "p10", "p11", "p12", "p13", "p14", "p15", "p16", "p17", "p18", "p19")
	if merged.PrimaryCount() != 10 || merged.SecondaryCount() != 0 {
		t.Errorf("counts = %d/%d, want 10/0", merged.PrimaryCount(), merged.SecondaryCount())
	}
	assertCalls(t, "primary", primary.calls, []searchCall{{0, 25}})
	assertCalls(t, "secondary", secondary.calls, []searchCall{{0, 25}})
}

func TestSearchRoundRobinFill(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	secondary := newFakeBackend("secondary", "s", 100)
	b := New("blended", primary, secondary, nil, testSettings())

	// window entirely beyond the oversampled zone: positions 30-39 are an
	// odd block, attributed to secondary offsets 10-19
	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 30, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	assertIDs(t, merged.Records(), "s10", "s11", "s12", "s13", "s14", "s15", "s16", "s17", "s18", "s19")

	// count-only probe, then a single block fetch against secondary
	assertCalls(t, "primary", primary.calls, []searchCall{{0, 0}})
	assertCalls(t, "secondary", secondary.calls, []searchCall{{0, 0}, {10, 10}})
}

func TestSearchFillCrossesBlocks(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	secondary := newFakeBackend("secondary", "s", 100)
	b := New("blended", primary, secondary, nil, testSettings())

	// positions 35-44: second half of an odd block, then an even block
	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 35, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	assertIDs(t, merged.Records(), "s15", "s16", "s17", "s18", "s19", "p20", "p21", "p22", "p23", "p24")

	// one block fetch per source; the sliding cache serves the rest
	assertCalls(t, "primary", primary.calls, []searchCall{{0, 0}, {20, 10}})
	assertCalls(t, "secondary", secondary.calls, []searchCall{{0, 0}, {15, 10}})
}

func TestSearchExhaustionDuringFill(t *testing.T) {
	primary := newFakeBackend("primary", "p", 35)
	secondary := newFakeBackend("secondary", "s", 5)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 30, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	// secondary exhausted long before position 30; primary serves the
	// whole window from its offsets 25-34
	assertIDs(t, merged.Records(), "p25", "p26", "p27", "p28", "p29", "p30", "p31", "p32", "p33", "p34")
	if merged.Total() != 35 {
		t.Errorf("Total() = %d, want 35", merged.Total())
	}
}

func TestSearchTruncatesWhenBothExhausted(t *testing.T) {
	primary := newFakeBackend("primary", "p", 28)
	secondary := newFakeBackend("secondary", "s", 5)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 30, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	// only 33 records exist across both sources: positions 30-32
	assertIDs(t, merged.Records(), "p25", "p26", "p27")
}

func TestSearchSingleBackendDown(t *testing.T) {
	primary := newFakeBackend("primary", "p", 40)
	secondary := newFakeBackend("secondary", "s", 100)
	secondary.searchErr = errors.New("secondary unavailable")
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 10)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}

	assertIDs(t, merged.Records(), "p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9")
	if merged.Total() != 40 {
		t.Errorf("Total() = %d, want 40 (surviving backend total)", merged.Total())
	}
	if merged.SecondaryCount() != 0 {
		t.Errorf("SecondaryCount() = %d, want 0", merged.SecondaryCount())
	}
}

func TestSearchPrimaryDown(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	primary.searchErr = errors.New("primary unavailable")
	secondary := newFakeBackend("secondary", "s", 30)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 10)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}

	assertIDs(t, merged.Records(), "s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9")
	if merged.Total() != 30 {
		t.Errorf("Total() = %d, want 30", merged.Total())
	}
}

func TestSearchBothBackendsDown(t *testing.T) {
	primaryErr := errors.New("primary exploded")
	primary := newFakeBackend("primary", "p", 100)
	primary.searchErr = primaryErr
	secondary := newFakeBackend("secondary", "s", 100)
	secondary.searchErr = errors.New("secondary exploded")
	b := New("blended", primary, secondary, nil, testSettings())

	_, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 10)
	if err == nil {
		t.Fatal("expected error when both backends fail")
	}
	if !errors.Is(err, primaryErr) {
		t.Errorf("error should wrap the primary's failure, got: %v", err)
	}
}

func TestSearchCountOnly(t *testing.T) {
	primary := newFakeBackend("primary", "p", 80)
	secondary := newFakeBackend("secondary", "s", 120)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 0)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	if merged.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for a count-only query", merged.Len())
	}
	if merged.Total() != 120 {
		t.Errorf("Total() = %d, want 120", merged.Total())
	}
	assertCalls(t, "primary", primary.calls, []searchCall{{0, 0}})
	assertCalls(t, "secondary", secondary.calls, []searchCall{{0, 0}})
}

func TestSearchBothEmpty(t *testing.T) {
	primary := newFakeBackend("primary", "p", 0)
	secondary := newFakeBackend("secondary", "s", 0)
	b := New("blended", primary, secondary, nil, testSettings())

	merged, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 0, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}
	if merged.Len() != 0 || merged.Total() != 0 {
		t.Errorf("len=%d total=%d, want 0/0", merged.Len(), merged.Total())
	}
}

func TestSearchFillBackendFailure(t *testing.T) {
	primary := newFakeBackend("primary", "p", 100)
	// secondary answers the count-only probe but fails every record fetch
	secondary := &failAfterProbe{fakeBackend: newFakeBackend("secondary", "s", 100)}
	b := New("blended", primary, secondary, nil, testSettings())

	result, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 30, 10)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	// positions 30-39 were scheduled secondary; after its fill failure the
	// window redirects to primary at offsets 20-29
	assertIDs(t, result.Records(), "p20", "p21", "p22", "p23", "p24", "p25", "p26", "p27", "p28", "p29")
}

// failAfterProbe serves count-only probes but fails every record fetch.
type failAfterProbe struct {
	*fakeBackend
}

func (f *failAfterProbe) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	if limit == 0 {
		return core.NewCollection(nil, f.total), nil
	}
	return nil, errors.New("transport failure")
}

func TestSearchDeterministic(t *testing.T) {
	primary := newFakeBackend("primary", "p", 60)
	secondary := newFakeBackend("secondary", "s", 60)
	b := New("blended", primary, secondary, nil, testSettings())

	first, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 10, 20)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}
	second, err := b.SearchBlended(context.Background(), core.NewQuery("q"), 10, 20)
	if err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}

	firstIDs := recordIDs(first.Records())
	secondIDs := recordIDs(second.Records())
	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("result sizes differ: %d vs %d", len(firstIDs), len(secondIDs))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("ordering not deterministic at %d: %s vs %s", i, firstIDs[i], secondIDs[i])
		}
	}
}

func TestSearchAppliesTranslator(t *testing.T) {
	primary := newFakeBackend("primary", "p", 10)
	secondary := &queryCapture{fakeBackend: newFakeBackend("secondary", "s", 10)}
	translator := RewriteTranslator{Append: "language:go"}
	b := New("blended", primary, secondary, translator, testSettings())

	if _, err := b.SearchBlended(context.Background(), core.NewQuery("terms"), 0, 10); err != nil {
		t.Fatalf("SearchBlended: %v", err)
	}
	if secondary.lastQuery.Terms != "terms language:go" {
		t.Errorf("secondary query = %q, want translated form", secondary.lastQuery.Terms)
	}
}

type queryCapture struct {
	*fakeBackend
	lastQuery core.Query
}

func (q *queryCapture) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	q.lastQuery = query
	return q.fakeBackend.Search(ctx, query, offset, limit)
}

func TestRetrieveFallsBackToSecondary(t *testing.T) {
	primary := newFakeBackend("primary", "p", 3)
	secondary := newFakeBackend("secondary", "s", 3)
	b := New("blended", primary, secondary, nil, testSettings())

	col, err := b.Retrieve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if col.First() == nil || col.First().ID() != "p1" {
		t.Errorf("expected p1 from primary, got %v", recordIDs(col.Records()))
	}

	col, err = b.Retrieve(context.Background(), "s2")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if col.First() == nil || col.First().ID() != "s2" {
		t.Errorf("expected s2 via secondary fallback, got %v", recordIDs(col.Records()))
	}

	col, err = b.Retrieve(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if col.Len() != 0 {
		t.Errorf("missing record should yield empty collection, got %v", recordIDs(col.Records()))
	}
}

func TestRetrieveBatchNativeSecondary(t *testing.T) {
	primary := &fakeBatchBackend{fakeBackend: newFakeBackend("primary", "", 0)}
	primary.records = []core.Record{
		core.NewGenericRecord("A", "A", "", "primary", nil),
		core.NewGenericRecord("C", "C", "", "primary", nil),
	}
	secondary := &fakeBatchBackend{fakeBackend: newFakeBackend("secondary", "", 0)}
	secondary.records = []core.Record{
		core.NewGenericRecord("B", "B", "", "secondary", nil),
	}
	b := New("blended", primary, secondary, nil, testSettings())

	col, err := b.RetrieveBatch(context.Background(), []string{"A", "B", "C", "Z"})
	if err != nil {
		t.Fatalf("RetrieveBatch: %v", err)
	}

	// primary hits first in primary order, then secondary resolutions;
	// Z is absent, not an error
	assertIDs(t, col.Records(), "A", "C", "B")

	if len(secondary.batchCalls) != 1 {
		t.Fatalf("secondary batch calls = %d, want 1", len(secondary.batchCalls))
	}
	missing := secondary.batchCalls[0]
	if len(missing) != 2 || missing[0] != "B" || missing[1] != "Z" {
		t.Errorf("secondary asked for %v, want [B Z]", missing)
	}
}

func TestRetrieveBatchDegradedSecondary(t *testing.T) {
	primary := &fakeBatchBackend{fakeBackend: newFakeBackend("primary", "", 0)}
	primary.records = []core.Record{
		core.NewGenericRecord("A", "A", "", "primary", nil),
	}
	// plain fakeBackend: no BatchRetriever, forcing the per-id path
	secondary := newFakeBackend("secondary", "", 0)
	secondary.records = []core.Record{
		core.NewGenericRecord("B", "B", "", "secondary", nil),
		core.NewGenericRecord("D", "D", "", "secondary", nil),
	}
	b := New("blended", primary, secondary, nil, testSettings())

	col, err := b.RetrieveBatch(context.Background(), []string{"A", "B", "D", "Z"})
	if err != nil {
		t.Fatalf("RetrieveBatch: %v", err)
	}
	assertIDs(t, col.Records(), "A", "B", "D")
}

func assertCalls(t *testing.T, name string, got, want []searchCall) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s calls = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s call %d = %v, want %v (full: %v)", name, i, got[i], want[i], got)
		}
	}
}
