// Package responsesvc implements the submission write path consumed by the
// HTTP transport: validate, enforce tenant identity and limits, persist the
// document, then notify live subscribers through the hub.
package responsesvc
