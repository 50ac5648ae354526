// Package store provides the result cache used by the assistant
// to pass a fetched dataset to dependent tool calls.
package store
