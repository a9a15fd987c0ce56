// Package blend merges ranked result sets from two independent search
// backends into one ordered, paginated result stream.
//
// Blending is positional: the merged ranking alternates between the primary
// and secondary backends in runs of BlockSize positions, so visually related
// results stay together. No record-level score is consulted. The first
// BlendLimit positions are served from an oversampled initial fetch against
// both backends; windows beyond that are filled lazily, block by block, from
// whichever backend the schedule attributes each position to.
//
// The engine tolerates partial failure: if one backend's initial fetch
// fails, the merged stream degrades to the surviving backend; only when both
// fail does Search return an error (the primary's).
package blend

// DefaultBlockSize is the interleaving granularity used when the
// configuration does not specify one.
const DefaultBlockSize = 10

// minBlendLimit is the floor for the oversampled zone: both backends are
// always queried from position 0 for at least this many positions.
const minBlendLimit = 20

// Settings holds the two tunables the planner derives from static
// configuration.
type Settings struct {
	// BlendLimit is the maximum absolute position up to which both backends
	// are guaranteed to be queried from position 0.
	BlendLimit int

	// BlockSize is the interleaving granularity.
	BlockSize int
}

// NewSettings derives blend settings from the boost tunables. BlendLimit is
// max(minBlendLimit, boostPosition+boostCount); a non-positive block size
// falls back to DefaultBlockSize.
func NewSettings(boostPosition, boostCount, blockSize int) Settings {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	blendLimit := boostPosition + boostCount
	if blendLimit < minBlendLimit {
		blendLimit = minBlendLimit
	}
	return Settings{
		BlendLimit: blendLimit,
		BlockSize:  blockSize,
	}
}

// PrimaryAt reports whether the record at absolute position pos of the
// merged ranking is sourced from the primary backend. Even-numbered blocks
// are primary, odd-numbered blocks secondary; the function is pure and
// periodic with period 2*blockSize.
func PrimaryAt(pos, blockSize int) bool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return (pos/blockSize)%2 == 0
}

// InitialFetchSize returns how many records to request from each backend,
// starting at position 0, before any blending happens.
//
// Windows that start inside the oversampled zone are covered by fetching
// min(blendLimit, offset+limit) records from both sides; later positions may
// need either source, so both are oversampled. Windows entirely beyond the
// zone only probe the backends for their totals (limit 0), as does a
// count-only query.
func InitialFetchSize(offset, limit, blendLimit int) int {
	if limit == 0 {
		return 0
	}
	if offset > blendLimit {
		return 0
	}
	size := offset + limit
	if size > blendLimit {
		size = blendLimit
	}
	return size
}
