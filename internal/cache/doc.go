// Package cache defines the keyed response store sitting between the proxy
// handler and the origin. Keys are canonical forms of the origin URL so two
// callers requesting the same tool always address the same entry, no matter
// what headers they carry. The store exposes lookup/put/remove primitives
// with TTL semantics: an entry past its TTL is logically absent even if the
// bytes are still resident. The filesystem store writes with temp file +
// rename so a crashed write never leaves a partial entry visible.
package cache
