// Package server exposes the debate service over HTTP.
//
// One API route, POST /messages, accepts either a start-of-conversation
// message (no conversation_id, Topic:/Side: markers) or a continuation
// message; the response carries the conversation id and the recent message
// window. Liveness, readiness, and Prometheus metrics endpoints are
// registered alongside.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/internal/health"
	"github.com/polemos-ai/polemos/internal/observe"
	"github.com/polemos-ai/polemos/internal/service"
)

// defaultRequestTimeout bounds one turn end-to-end when none is configured.
const defaultRequestTimeout = 25 * time.Second

// Server handles the HTTP surface of the debate service.
type Server struct {
	svc            *service.MessageService
	health         *health.Handler
	metrics        *observe.Metrics
	requestTimeout time.Duration
}

// New creates a Server. requestTimeout <= 0 falls back to the default.
func New(svc *service.MessageService, healthHandler *health.Handler, metrics *observe.Metrics, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		svc:            svc,
		health:         healthHandler,
		metrics:        metrics,
		requestTimeout: requestTimeout,
	}
}

// Handler returns the fully routed HTTP handler with observability
// middleware applied to the API route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /messages", observe.Middleware(s.metrics)(http.HandlerFunc(s.postMessages)))
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}
	return mux
}

// messageIn is the request body of POST /messages.
type messageIn struct {
	// ConversationID is absent for start-of-conversation messages.
	ConversationID *int64 `json:"conversation_id,omitempty"`

	// Message is the user's text.
	Message string `json:"message"`
}

// messageOut is one element of the returned window.
type messageOut struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// conversationOut is the response body of POST /messages.
type conversationOut struct {
	ConversationID int64        `json:"conversation_id"`
	Message        []messageOut `json:"message"`
}

// errorOut is the error response body.
type errorOut struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// postMessages handles both start and continuation turns.
func (s *Server) postMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var in messageIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request_body", "request body must be JSON with a message field")
		return
	}

	result, err := s.svc.Handle(ctx, in.ConversationID, in.Message)
	if err != nil {
		// A deadline hit anywhere inside the turn is reported as an LLM
		// timeout, matching the service taxonomy.
		if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
			err = debate.ErrLLMTimeout
		}
		status, code := mapError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("turn failed", "error", err, "status", status)
		}
		writeError(w, status, code, err.Error())
		return
	}

	out := conversationOut{ConversationID: result.ConversationID}
	for _, m := range result.Messages {
		out.Message = append(out.Message, messageOut{Role: m.Role, Message: m.Text})
	}

	status := http.StatusOK
	if result.Started {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// mapError translates domain errors into HTTP status codes and stable error
// codes.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, debate.ErrInvalidStart):
		return http.StatusUnprocessableEntity, "invalid_start_message"
	case errors.Is(err, debate.ErrInvalidContinuation):
		return http.StatusUnprocessableEntity, "invalid_continuation_message"
	case errors.Is(err, debate.ErrConversationNotFound):
		return http.StatusNotFound, "conversation_not_found"
	case errors.Is(err, debate.ErrConversationExpired):
		return http.StatusNotFound, "conversation_expired"
	case errors.Is(err, debate.ErrLLMTimeout):
		return http.StatusServiceUnavailable, "llm_timeout"
	case errors.Is(err, debate.ErrLLMService):
		return http.StatusBadGateway, "llm_service_error"
	case errors.Is(err, debate.ErrConfig):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorOut{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
