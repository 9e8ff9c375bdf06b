// Package pebblestore wraps a Pebble database with Pulse's durability policy.
//
// The wrapper centralizes fsync behavior (always, interval group-commit, or
// never) so callers never pass pebble.WriteOptions directly. Response
// documents and tenant metadata are stored through this package.
package pebblestore
