// Package responses is the durable document store for survey responses.
//
// Documents are stored in Pebble under t/{tenant}/resp/{survey}/e/{seq_be8}
// with a CRC-framed encoding, so a prefix scan yields submission order. Each
// (tenant,survey) pair keeps a persisted sequence high-water mark committed
// atomically with the document.
package responses
