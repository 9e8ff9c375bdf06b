// Package id provides a 128-bit, lexicographically sortable identifier used
// for subscriber identities.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence],
// so byte-wise comparison preserves chronological order and IDs generated
// within the same millisecond remain strictly increasing by sequence. The
// Generator guarantees per-process monotonicity even across clock
// regressions, which makes collisions between live subscriber IDs impossible
// within a process lifetime.
//
// Usage
//
//	g := id.NewGenerator()
//	s := g.Next().String() // hex string
package id
