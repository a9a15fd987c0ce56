package core

import (
	"context"
)

// Backend represents one search index that can answer ranked queries and
// look up records by id. All backends in Meld implement this interface,
// including the blend engine itself, which makes a blended pair
// substitutable wherever a single backend is expected.
//
// Key concepts:
//   - Type vs Name: Type is the backend category (e.g. "sqlite", "github"),
//     Name is the configured instance ("primary", "secondary").
//   - Pagination: Search takes an absolute offset and a limit; backends must
//     honor both, and a limit of 0 is a count-only probe (no records, Total
//     still populated).
type Backend interface {
	// Type returns the backend type identifier, a constant string used for
	// prototype registration and configuration matching.
	Type() string

	// Name returns the configured instance name for this backend
	// (e.g. "primary"). This is what record Source() values refer to.
	Name() string

	// Search returns up to limit records starting at the given absolute
	// offset of the backend's ranking, along with the total hit count.
	// limit 0 requests the total only. A transport or protocol failure is
	// returned as an error; an empty result set is not an error.
	Search(ctx context.Context, query Query, offset, limit int) (*Collection, error)

	// Retrieve looks up a single record by id. A missing record yields an
	// empty collection, not an error.
	Retrieve(ctx context.Context, id string) (*Collection, error)

	// Close releases any resources held by the backend.
	Close() error
}

// BatchRetriever is an optional capability for backends that can resolve
// several ids in one round trip. Callers detect it with a type assertion;
// backends without it get the per-id fallback path.
type BatchRetriever interface {
	RetrieveBatch(ctx context.Context, ids []string) (*Collection, error)
}

// Indexer is an optional capability for backends that own a writable
// index. The index command feeds records through it.
type Indexer interface {
	Index(ctx context.Context, records []Record) error
}

// Prototype is the contract backend packages register with the Registry.
// It extends Backend with configuration handling and instance creation,
// following the self-registration pattern:
//
//	func init() {
//		core.RegisterBackendPrototype("myindex", &Backend{})
//	}
type Prototype interface {
	Backend

	// ConfigType returns a pointer to an empty configuration struct of the
	// type SetConfig expects.
	ConfigType() interface{}

	// SetConfig updates the backend configuration, validating it first.
	SetConfig(config interface{}) error

	// Factory creates a configured instance of this backend type. Called by
	// the registry when wiring instances from configuration.
	Factory(instanceName string, config interface{}) (Backend, error)
}
