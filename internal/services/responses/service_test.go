package responsesvc

import (
	"context"
	"errors"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/hub"
	"github.com/rzbill/pulse/internal/responses"
	"github.com/rzbill/pulse/internal/runtime"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

func newService(t *testing.T) (*Service, *hub.Hub, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	h := hub.New(hub.Options{AllowAnonymous: true, BufferLen: 8})
	return New(rt, h), h, rt
}

func TestSubmitPersistsAndPublishes(t *testing.T) {
	svc, h, _ := newService(t)
	sub, err := h.Subscribe(hub.SubscribeRequest{TenantHint: "acme"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	<-sub.Frames() // connected marker

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		Tenant:  "acme",
		Survey:  "s1",
		Answers: map[string]interface{}{"q1": "yes"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("no id assigned")
	}

	frame := string(<-sub.Frames())
	if !strings.Contains(frame, "event: response:created\n") {
		t.Fatalf("frame kind: %q", frame)
	}
	if !strings.Contains(frame, `"surveyId":"s1"`) || !strings.Contains(frame, `"id":"`+resp.ID+`"`) {
		t.Fatalf("frame payload should carry the saved record: %q", frame)
	}

	// And the document is durably readable.
	got, err := svc.List(context.Background(), "acme", "s1", responses.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != resp.ID {
		t.Fatalf("stored docs: %+v", got)
	}
}

func TestSubmitTopicRouting(t *testing.T) {
	svc, h, _ := newService(t)
	s2sub, _ := h.Subscribe(hub.SubscribeRequest{TenantHint: "acme", SurveyHint: "s2"})
	defer s2sub.Close()
	<-s2sub.Frames()

	if _, err := svc.Submit(context.Background(), SubmitRequest{
		Tenant: "acme", Survey: "s1",
		Answers: map[string]interface{}{"q": 1},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case frame := <-s2sub.Frames():
		t.Fatalf("s2 subscriber must not see s1 events: %q", frame)
	default:
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	cases := []SubmitRequest{
		{Survey: "s1", Answers: map[string]interface{}{"a": 1}},
		{Tenant: "acme", Answers: map[string]interface{}{"a": 1}},
		{Tenant: "acme", Survey: "s1"},
	}
	for i, req := range cases {
		if _, err := svc.Submit(ctx, req); !errors.Is(err, ErrMissingField) {
			t.Fatalf("case %d: expected ErrMissingField, got %v", i, err)
		}
	}
}

func TestSubmitTenantMismatch(t *testing.T) {
	svc, h, _ := newService(t)
	sub, _ := h.Subscribe(hub.SubscribeRequest{TenantHint: "acme"})
	defer sub.Close()
	<-sub.Frames()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Tenant: "acme", Survey: "s1",
		Answers:    map[string]interface{}{"a": 1},
		AuthTenant: "globex",
	})
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
	select {
	case frame := <-sub.Frames():
		t.Fatalf("rejected write must not publish: %q", frame)
	default:
	}
}

func TestSubmitPayloadTooLarge(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.TenantDefaults.PayloadMaxBytes = 16
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	h := hub.New(hub.Options{AllowAnonymous: true, BufferLen: 8})
	svc := New(rt, h)

	_, err = svc.Submit(context.Background(), SubmitRequest{
		Tenant: "acme", Survey: "s1",
		Answers: map[string]interface{}{"blob": strings.Repeat("x", 64)},
	})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestFailedWriteNeverPublishes(t *testing.T) {
	svc, h, _ := newService(t)
	sub, _ := h.Subscribe(hub.SubscribeRequest{TenantHint: "acme"})
	defer sub.Close()
	<-sub.Frames()

	// A channel value cannot be serialized, so the write path fails before
	// the document is persisted.
	if _, err := svc.Submit(context.Background(), SubmitRequest{
		Tenant: "acme", Survey: "s1",
		Answers: map[string]interface{}{"bad": make(chan int)},
	}); err == nil {
		t.Fatalf("expected write failure")
	}
	select {
	case frame := <-sub.Frames():
		t.Fatalf("no event frame may be observed for a failed write: %q", frame)
	default:
	}
	if got, err := svc.List(context.Background(), "acme", "s1", responses.ListOptions{}); err != nil || len(got) != 0 {
		t.Fatalf("failed write must not persist: %v %v", got, err)
	}
}

func TestListValidation(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.List(context.Background(), "", "s1", responses.ListOptions{}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, err := svc.List(context.Background(), "acme", "", responses.ListOptions{}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}
