package core

// Collection is an ordered sequence of records plus the backend-reported
// total hit count. Total may exceed the number of records actually fetched
// when the backend paginates. Collections returned by backends are treated
// as immutable.
type Collection struct {
	records []Record
	total   int
}

// NewCollection wraps records and a reported total. A negative total is
// clamped to the record count.
func NewCollection(records []Record, total int) *Collection {
	if total < len(records) {
		total = len(records)
	}
	return &Collection{records: records, total: total}
}

// EmptyCollection returns a collection with no records and a zero total.
// Used to represent "record not found" (absence is not an error).
func EmptyCollection() *Collection {
	return &Collection{}
}

// Records returns the fetched records in backend ranking order.
func (c *Collection) Records() []Record {
	return c.records
}

// Total returns the backend-reported hit count.
func (c *Collection) Total() int {
	return c.total
}

// Len returns the number of records actually fetched.
func (c *Collection) Len() int {
	return len(c.records)
}

// First returns the first record, or nil for an empty collection.
func (c *Collection) First() Record {
	if len(c.records) == 0 {
		return nil
	}
	return c.records[0]
}
