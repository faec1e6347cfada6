// Package sink defines where rendered notes go and keeps the set of
// configured destinations.
package sink
