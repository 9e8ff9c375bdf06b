package hub

// Event is one domain notification routed to the live subscribers of a
// tenant. Events exist only for the duration of the Publish call that
// created them; there is no queuing or replay.
type Event struct {
	// Kind is the event name carried on the wire, e.g. "response:created".
	Kind string
	// Tenant selects the target bucket. Required.
	Tenant string
	// Survey optionally narrows delivery to subscribers of one survey.
	Survey string
	// Payload is serialized verbatim into the frame's data line.
	Payload interface{}
}

// eventFrame renders a named SSE frame: an event-name line, a data line with
// the JSON payload, and a blank-line terminator.
func eventFrame(kind string, data []byte) []byte {
	out := make([]byte, 0, len(kind)+len(data)+16)
	out = append(out, "event: "...)
	out = append(out, kind...)
	out = append(out, '\n')
	out = append(out, "data: "...)
	out = append(out, data...)
	out = append(out, '\n', '\n')
	return out
}

// commentFrame renders an SSE comment (no event name), used as the
// keep-alive marker.
func commentFrame(text string) []byte {
	out := make([]byte, 0, len(text)+4)
	out = append(out, ':', ' ')
	out = append(out, text...)
	out = append(out, '\n', '\n')
	return out
}
