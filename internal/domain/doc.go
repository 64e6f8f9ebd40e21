// Package domain defines the core business entities of the catalog and the
// invariants they must satisfy. It has no knowledge of storage, transport or
// messaging; those layers depend on it, never the other way round.
package domain
