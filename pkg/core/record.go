package core

// Record represents a single search hit owned by the backend that returned
// it. The blend engine only reorders and re-wraps records; it never mutates
// them.
//
// Key design principles:
//   - Immutable: once created, records should not be modified
//   - Self-contained: everything needed for display is reachable through
//     the interface
//   - Attributed: Source() must return the backend instance name so merged
//     result sets stay traceable to their origin
type Record interface {
	// ID returns the backend-scoped identifier for this record.
	// IDs are only guaranteed unique within a single backend; the pair
	// (Source, ID) is unique across a blended result set.
	ID() string

	// Title returns a short human-readable label for the record.
	Title() string

	// Text returns the record body or snippet as returned by the backend.
	Text() string

	// Source returns the backend instance name that produced this record.
	Source() string

	// Metadata returns backend-specific structured data. Keys and value
	// types are owned by the producing backend.
	Metadata() map[string]interface{}
}

// GenericRecord is the plain Record implementation used by backends that
// have no richer domain type, and by the remote backend when decoding
// records off the wire.
type GenericRecord struct {
	id       string
	title    string
	text     string
	source   string
	metadata map[string]interface{}
}

// NewGenericRecord creates a record with the provided data. Metadata may be
// nil when the backend has nothing structured to attach.
func NewGenericRecord(id, title, text, source string, metadata map[string]interface{}) *GenericRecord {
	return &GenericRecord{
		id:       id,
		title:    title,
		text:     text,
		source:   source,
		metadata: metadata,
	}
}

func (r *GenericRecord) ID() string                       { return r.id }
func (r *GenericRecord) Title() string                    { return r.title }
func (r *GenericRecord) Text() string                     { return r.text }
func (r *GenericRecord) Source() string                   { return r.source }
func (r *GenericRecord) Metadata() map[string]interface{} { return r.metadata }
