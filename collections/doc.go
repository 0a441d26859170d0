// Package collections holds the small maps used around the container:
// CopyOnWriteMap for read-mostly soft caches, StringIntMap for fixed
// string-keyed indexes and SortedStringMap for immutable member tables.
//
// For a capacity-bounded map with recency-based eviction use package
// cache instead.
package collections
