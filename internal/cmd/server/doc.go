// Package serverrun wires the runtime, hub, services, and HTTP transport into
// a running server process.
package serverrun
