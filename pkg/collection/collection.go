// Package collection defines the in-memory shapes that move between the
// storage layer, the codecs and the archive bundler.
package collection

import "sort"

// Document is a single record. Its internal shape is owned by the codec that
// produced it.
type Document map[string]any

// Collection is an ordered sequence of documents.
type Collection []Document

// Set maps collection names to their contents. Map keys keep names unique
// within one export or import call.
type Set map[string]Collection

// Names returns the collection names in the set, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of documents across every collection.
func (s Set) Count() int {
	total := 0
	for _, c := range s {
		total += len(c)
	}
	return total
}
