package hub

import "testing"

func TestEmptyFilterPassesEverything(t *testing.T) {
	f, err := newCELFilter("   ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(Event{Kind: "response:created"}, []byte(`{"a":1}`)) {
		t.Fatalf("disabled filter must pass")
	}
}

func TestFilterOnEventMetadata(t *testing.T) {
	f, err := newCELFilter(`kind == "response:created" && survey == "s1"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(Event{Kind: "response:created", Survey: "s1"}, []byte(`{}`)) {
		t.Fatalf("expected match")
	}
	if f.Eval(Event{Kind: "response:created", Survey: "s2"}, []byte(`{}`)) {
		t.Fatalf("expected no match for s2")
	}
}

func TestFilterOnPayloadJSON(t *testing.T) {
	f, err := newCELFilter(`json.answers.rating >= 4`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(Event{}, []byte(`{"answers":{"rating":5}}`)) {
		t.Fatalf("expected rating 5 to pass")
	}
	if f.Eval(Event{}, []byte(`{"answers":{"rating":2}}`)) {
		t.Fatalf("expected rating 2 to fail")
	}
}

func TestFilterEvalErrorFailsClosed(t *testing.T) {
	f, err := newCELFilter(`json.missing.deep == 1`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval(Event{}, []byte(`{}`)) {
		t.Fatalf("evaluation error should drop the event")
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := newCELFilter(`((`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestFrameEncoding(t *testing.T) {
	got := string(eventFrame("response:created", []byte(`{"x":1}`)))
	want := "event: response:created\ndata: {\"x\":1}\n\n"
	if got != want {
		t.Fatalf("event frame: %q", got)
	}
	if c := string(commentFrame("connected")); c != ": connected\n\n" {
		t.Fatalf("comment frame: %q", c)
	}
}
