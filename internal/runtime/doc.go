// Package runtime wires storage and configuration into a single-node Pulse
// instance shared by services and transports.
package runtime
