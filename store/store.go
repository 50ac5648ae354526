package store

// Dataset is the list of items returned by a bulk-fetch tool,
// each item is a JSON object decoded into map[string]any.
type Dataset []any

// DatasetCache holds at most one Dataset.
// A cache is private to one assistant invocation.
type DatasetCache interface {
	// Get returns the cached Dataset, and false if the cache is empty.
	Get() (Dataset, bool)
	// Set replaces the cached Dataset.
	// Setting an empty Dataset clears the cache.
	Set(ds Dataset)
	// IsEmpty returns true if no non-empty Dataset was stored.
	IsEmpty() bool
}
