package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nftlend/core"
	"nftlend/crypto"
	"nftlend/indexer"
	"nftlend/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020

	codePrecondition   = -32030
	codeNotYetEligible = -32031
	codeExpired        = -32032
	codeIdentity       = -32033
	codeConflict       = -32034
	codeOverflow       = -32035
	codePaused         = -32036
)

// EventLister serves the event history.
type EventLister interface {
	List(filter indexer.Filter) ([]indexer.EventRecord, error)
}

// ServerConfig configures the JSON-RPC server.
type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimit
	Service   string
	// Stream, when set, backs the /ws live event feed.
	Stream *EventStream
}

type methodHandler func(caller crypto.Address, params []json.RawMessage) (interface{}, error)

type method struct {
	module  string
	mutates bool
	handle  methodHandler
}

// Server exposes the protocol over JSON-RPC 2.0.
type Server struct {
	protocol *core.Protocol
	events   EventLister
	stream   *EventStream
	auth     *Authenticator
	limiter  *RateLimiter
	logger   *slog.Logger
	service  string
	methods  map[string]method
}

// NewServer builds a server over protocol. events may be nil when no
// history store is configured.
func NewServer(protocol *core.Protocol, events EventLister, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Service == "" {
		cfg.Service = "nftlendd"
	}
	s := &Server{
		protocol: protocol,
		events:   events,
		stream:   cfg.Stream,
		auth:     NewAuthenticator(cfg.Auth),
		limiter:  NewRateLimiter(cfg.RateLimit),
		logger:   logger,
		service:  cfg.Service,
	}
	s.methods = s.methodTable()
	return s
}

// Handler returns the HTTP routes served by the daemon.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.limiter.Middleware).Post("/rpc", s.handle)
	r.With(s.limiter.Middleware).Get("/ws", s.handleEventsWS)
	return otelhttp.NewHandler(r, s.service)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle decodes one JSON-RPC request and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	code := 0
	defer func() {
		duration := time.Since(start)
		observability.ModuleMetrics().Observe(m.module, req.Method, code, duration)
		s.logger.Info("rpc request",
			slog.String("method", req.Method),
			slog.String("module", m.module),
			slog.String("requestId", w.Header().Get(requestIDHeader)),
			slog.Int("code", code),
			slog.Duration("duration", duration))
	}()

	var caller crypto.Address
	if m.mutates {
		var authErr *RPCError
		caller, authErr = s.auth.Caller(r)
		if authErr != nil {
			code = authErr.Code
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	result, err := m.handle(caller, req.Params)
	if err != nil {
		status, rpcErr := errorFor(err)
		code = rpcErr.Code
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}
