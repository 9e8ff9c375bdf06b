package hub

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rzbill/pulse/pkg/id"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

// Wildcard is the reserved bucket key for subscribers bound to no tenant.
// Such subscribers observe events of every tenant.
const Wildcard = "*"

// ErrAnonymousDisabled is returned by Subscribe when no tenant could be
// resolved and the hub is configured to reject anonymous subscriptions.
var ErrAnonymousDisabled = errors.New("hub: anonymous subscribe disabled")

// TokenVerifier decodes a bearer token into a tenant identity.
type TokenVerifier interface {
	VerifyToken(token string) (tenant string, err error)
}

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(token string) (string, error)

// VerifyToken implements TokenVerifier.
func (f VerifierFunc) VerifyToken(token string) (string, error) { return f(token) }

// Options configures a Hub.
type Options struct {
	// Verifier validates bearer tokens on subscribe. Optional; when nil every
	// token is treated as invalid and subscribe falls back to hints.
	Verifier TokenVerifier
	// AllowAnonymous permits subscriptions with no resolvable tenant; they
	// land in the wildcard bucket.
	AllowAnonymous bool
	// BufferLen is the per-subscriber frame buffer length.
	BufferLen int
	// Logger receives contained fan-out failures at debug level.
	Logger logpkg.Logger
}

// Hub owns the registry of live subscribers and the publish fan-out path.
// All bucket access goes through one RWMutex: registrations and removals are
// driven by connection lifecycle events that race with publishes from
// unrelated request handlers.
type Hub struct {
	verifier       TokenVerifier
	allowAnonymous bool
	bufLen         int
	logger         logpkg.Logger
	ids            *id.Generator

	mu      sync.RWMutex
	buckets map[string][]*Subscriber
}

// New constructs an empty Hub.
func New(opts Options) *Hub {
	if opts.BufferLen <= 0 {
		opts.BufferLen = 64
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger().With(logpkg.Component("hub"))
	}
	return &Hub{
		verifier:       opts.Verifier,
		allowAnonymous: opts.AllowAnonymous,
		bufLen:         opts.BufferLen,
		logger:         opts.Logger,
		ids:            id.NewGenerator(),
		buckets:        map[string][]*Subscriber{},
	}
}

// register appends sub to its bucket.
func (h *Hub) register(sub *Subscriber) {
	bucket := sub.Tenant
	if bucket == "" {
		bucket = Wildcard
	}
	h.mu.Lock()
	h.buckets[bucket] = append(h.buckets[bucket], sub)
	h.mu.Unlock()
}

// unregister removes the subscriber with the given id from the bucket and
// closes its sink. Removing an absent id is a no-op.
func (h *Hub) unregister(bucket, subID string) {
	if bucket == "" {
		bucket = Wildcard
	}
	var removed *Subscriber
	h.mu.Lock()
	subs := h.buckets[bucket]
	for i, s := range subs {
		if s.ID == subID {
			removed = s
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(h.buckets, bucket)
	} else {
		h.buckets[bucket] = subs
	}
	h.mu.Unlock()
	if removed != nil {
		removed.closeSink()
	}
}

// snapshot returns a copy of the tenant bucket plus the wildcard bucket.
// Callers iterate the copy free of concurrent mutation.
func (h *Hub) snapshot(tenantKey string) []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tenantSubs := h.buckets[tenantKey]
	wildSubs := h.buckets[Wildcard]
	if tenantKey == Wildcard {
		wildSubs = nil
	}
	out := make([]*Subscriber, 0, len(tenantSubs)+len(wildSubs))
	out = append(out, tenantSubs...)
	out = append(out, wildSubs...)
	return out
}

// SubscriberCount reports the current number of subscribers in a tenant's
// bucket (the wildcard bucket is its own key).
func (h *Hub) SubscriberCount(tenantKey string) int {
	if tenantKey == "" {
		tenantKey = Wildcard
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buckets[tenantKey])
}

// Publish serializes the event once and writes the resulting frame to every
// matching subscriber's sink. Per-target failures (closed sink, lagging
// buffer) are contained: they never abort delivery to the remaining targets,
// never remove the subscriber, and never surface to the caller. Removal is
// the transport-close teardown's job.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		h.logger.Error("drop event: payload marshal", logpkg.Str("kind", ev.Kind), logpkg.Err(err))
		return
	}
	frame := eventFrame(ev.Kind, data)
	for _, sub := range h.snapshot(ev.Tenant) {
		if ev.Survey != "" && sub.Survey != "" && sub.Survey != ev.Survey {
			continue
		}
		if !sub.filter.Eval(ev, data) {
			continue
		}
		if err := sub.send(frame); err != nil {
			h.logger.Debug("fan-out write skipped",
				logpkg.Str("subscriber", sub.ID),
				logpkg.Str("tenant", ev.Tenant),
				logpkg.Err(err))
		}
	}
}

// SubscribeRequest carries the raw credentials and hints of a subscribe call.
type SubscribeRequest struct {
	// Token is an optional bearer token. A valid token's tenant claim wins; an
	// invalid or absent token forfeits the trusted binding without rejecting
	// the subscription.
	Token string
	// TenantHint is the explicit, untrusted tenant fallback.
	TenantHint string
	// SurveyHint optionally narrows the subscription to one survey.
	SurveyHint string
	// Filter is an optional CEL expression evaluated per event payload.
	Filter string
}

// Subscription is the scoped handle returned by Subscribe. Close runs
// teardown (unregister + sink close) exactly once regardless of which code
// path triggers it.
type Subscription struct {
	sub    *Subscriber
	hub    *Hub
	bucket string
	once   sync.Once
}

// Subscriber exposes the registered subscriber.
func (s *Subscription) Subscriber() *Subscriber { return s.sub }

// Frames returns the subscription's outbound frame stream.
func (s *Subscription) Frames() <-chan []byte { return s.sub.Frames() }

// Close removes the subscriber from the registry and releases its sink.
// Safe to call multiple times and concurrently with publishes.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unregister(s.bucket, s.sub.ID) })
}

// Subscribe negotiates a subscriber identity from credentials and hints,
// registers it, and queues the initial keep-alive marker so the transport can
// report "connected" before any event traffic.
func (h *Hub) Subscribe(req SubscribeRequest) (*Subscription, error) {
	tenantKey := ""
	if req.Token != "" && h.verifier != nil {
		if claimed, err := h.verifier.VerifyToken(req.Token); err == nil {
			tenantKey = claimed
		}
	}
	if tenantKey == "" {
		tenantKey = req.TenantHint
	}
	if tenantKey == "" && !h.allowAnonymous {
		return nil, ErrAnonymousDisabled
	}

	filter, err := newCELFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:     h.ids.Next().String(),
		Tenant: tenantKey,
		Survey: req.SurveyHint,
		filter: filter,
		frames: make(chan []byte, h.bufLen),
	}
	h.register(sub)

	bucket := tenantKey
	if bucket == "" {
		bucket = Wildcard
	}
	// Queued after registration, ahead of all event traffic for this sink.
	_ = sub.send(commentFrame("connected"))

	h.logger.Debug("subscriber registered",
		logpkg.Str("subscriber", sub.ID),
		logpkg.Str("bucket", bucket),
		logpkg.Str("survey", sub.Survey))
	return &Subscription{sub: sub, hub: h, bucket: bucket}, nil
}

// KeepAliveFrame returns the comment frame transports write periodically to
// hold idle connections open.
func KeepAliveFrame() []byte { return commentFrame("keep-alive") }
