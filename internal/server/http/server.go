package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/pulse/internal/auth"
	"github.com/rzbill/pulse/internal/hub"
	"github.com/rzbill/pulse/internal/responses"
	"github.com/rzbill/pulse/internal/runtime"
	responsesvc "github.com/rzbill/pulse/internal/services/responses"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	hub    *hub.Hub
	svc    *responsesvc.Service
	logger logpkg.Logger
}

// New builds a Server with its own hub and response service derived from the
// runtime configuration.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	cfg := rt.Config()
	h := hub.New(hub.Options{
		Verifier: hub.VerifierFunc(func(token string) (string, error) {
			claims, err := auth.Verify(cfg.AuthSecret, token)
			if err != nil {
				return "", err
			}
			return claims.Tenant, nil
		}),
		AllowAnonymous: cfg.AllowAnonymousSubscribe,
		BufferLen:      cfg.SubscriberBuffer,
		Logger:         logger,
	})
	svc := responsesvc.NewWithLogger(rt, h, logger)
	return NewWithServices(rt, h, svc, logger)
}

// NewWithServices builds a Server over shared service instances.
func NewWithServices(rt *runtime.Runtime, h *hub.Hub, svc *responsesvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, hub: h, svc: svc, logger: logger, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/responses", s.handleResponses)
	mux.HandleFunc("/v1/events/subscribe", s.handleSubscribeSSE)
	return s
}

// Hub exposes the server's hub (shared with other producers).
func (s *Server) Hub() *hub.Hub { return s.hub }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter (EventSource cannot set headers).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitReq struct {
	Tenant  string                 `json:"tenant"`
	Survey  string                 `json:"surveyId"`
	Answers map[string]interface{} `json:"answers"`
	Meta    map[string]string      `json:"meta"`
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleSubmit runs the persist-then-notify write path. A bearer token is
// optional, but when present it must verify and match the declared tenant.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	authTenant := ""
	if token := bearerToken(r); token != "" {
		claims, err := auth.Verify(s.rt.Config().AuthSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		authTenant = claims.Tenant
	}
	resp, err := s.svc.Submit(r.Context(), responsesvc.SubmitRequest{
		Tenant:     req.Tenant,
		Survey:     req.Survey,
		Answers:    req.Answers,
		Meta:       req.Meta,
		AuthTenant: authTenant,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, responsesvc.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, responsesvc.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, responsesvc.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		s.logger.Error("submit failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "store error")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantName := q.Get("tenant")
	if token := bearerToken(r); token != "" {
		claims, err := auth.Verify(s.rt.Config().AuthSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if tenantName == "" {
			tenantName = claims.Tenant
		} else if tenantName != claims.Tenant {
			writeError(w, http.StatusForbidden, "token tenant does not match request tenant")
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	reverse := q.Get("reverse") == "true"
	docs, err := s.svc.List(r.Context(), tenantName, q.Get("survey"), responses.ListOptions{Limit: limit, Reverse: reverse})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"responses": docs})
	case errors.Is(err, responsesvc.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("list failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "store error")
	}
}
