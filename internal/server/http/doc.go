// Package httpserver exposes the HTTP/SSE surface: response submission and
// listing under /v1/responses, the live event stream under
// /v1/events/subscribe, and a health probe.
package httpserver
