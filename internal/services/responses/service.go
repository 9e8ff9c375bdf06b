package responsesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/pulse/internal/hub"
	"github.com/rzbill/pulse/internal/responses"
	"github.com/rzbill/pulse/internal/runtime"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

// EventResponseCreated is the event kind published after a successful insert.
const EventResponseCreated = "response:created"

var (
	// ErrMissingField reports an absent required field; wrapped with the
	// field name.
	ErrMissingField = errors.New("missing required field")
	// ErrTenantMismatch reports an authenticated identity whose tenant does
	// not match the write's declared tenant.
	ErrTenantMismatch = errors.New("token tenant does not match request tenant")
	// ErrPayloadTooLarge reports answers exceeding the tenant's payload limit.
	ErrPayloadTooLarge = errors.New("payload exceeds tenant limit")
)

// Service implements the persist-then-notify write path and the read surface
// over stored responses.
type Service struct {
	rt     *runtime.Runtime
	store  *responses.Store
	hub    *hub.Hub
	logger logpkg.Logger
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime, h *hub.Hub) *Service {
	return NewWithLogger(rt, h, nil)
}

// NewWithLogger constructs the service with an injected logger.
func NewWithLogger(rt *runtime.Runtime, h *hub.Hub, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("responses"))
	}
	return &Service{rt: rt, store: responses.NewStore(rt.DB()), hub: h, logger: logger}
}

// SubmitRequest carries one response submission.
type SubmitRequest struct {
	Tenant  string
	Survey  string
	Answers map[string]interface{}
	Meta    map[string]string
	// AuthTenant is the verified tenant claim when the caller presented a
	// valid token; empty means the call is unauthenticated.
	AuthTenant string
}

// Submit validates and persists a response, then publishes a
// response:created event to the tenant's live subscribers. Publish never
// precedes durable persistence: any validation or store failure returns
// before notification, and fan-out failures never propagate back.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*responses.Response, error) {
	if req.Tenant == "" {
		return nil, fmt.Errorf("%w: tenant", ErrMissingField)
	}
	if req.Survey == "" {
		return nil, fmt.Errorf("%w: surveyId", ErrMissingField)
	}
	if len(req.Answers) == 0 {
		return nil, fmt.Errorf("%w: answers", ErrMissingField)
	}
	if req.AuthTenant != "" && req.AuthTenant != req.Tenant {
		return nil, ErrTenantMismatch
	}

	meta, err := s.rt.EnsureTenant(req.Tenant)
	if err != nil {
		return nil, err
	}
	if meta.PayloadMaxBytes > 0 {
		encoded, err := json.Marshal(req.Answers)
		if err != nil {
			return nil, err
		}
		if len(encoded) > meta.PayloadMaxBytes {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(encoded), meta.PayloadMaxBytes)
		}
	}

	resp := &responses.Response{
		Tenant:  req.Tenant,
		Survey:  req.Survey,
		Answers: req.Answers,
		Meta:    req.Meta,
	}
	start := time.Now()
	if err := s.store.Insert(ctx, resp); err != nil {
		return nil, err
	}
	s.logger.Debug("response persisted",
		logpkg.Str("tenant", resp.Tenant),
		logpkg.Str("survey", resp.Survey),
		logpkg.Str("id", resp.ID),
		logpkg.Dur("dur", time.Since(start)))

	s.hub.Publish(hub.Event{
		Kind:    EventResponseCreated,
		Tenant:  resp.Tenant,
		Survey:  resp.Survey,
		Payload: resp,
	})
	return resp, nil
}

// List returns stored responses for a (tenant,survey) pair.
func (s *Service) List(ctx context.Context, tenantName, survey string, opts responses.ListOptions) ([]responses.Response, error) {
	if tenantName == "" {
		return nil, fmt.Errorf("%w: tenant", ErrMissingField)
	}
	if survey == "" {
		return nil, fmt.Errorf("%w: surveyId", ErrMissingField)
	}
	return s.store.List(tenantName, survey, opts)
}
