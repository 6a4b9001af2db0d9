package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/resolver"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// Version is reported by the initialize method
var Version = "dev"

// Handler maps JSON-RPC requests onto the resolver
type Handler struct {
	resolver    *resolver.Resolver
	schema      *schema.Schema
	logger      *logrus.Logger
	validate    *validator.Validate
	rateLimiter *rate.Limiter
	timeout     time.Duration
}

// NewHandler creates a new handler. A zero rate limit disables limiting.
func NewHandler(res *resolver.Resolver, sch *schema.Schema, cfg config.GatewayConfig, logger *logrus.Logger) *Handler {
	h := &Handler{
		resolver: res,
		schema:   sch,
		logger:   logger,
		validate: validator.New(),
		timeout:  cfg.RequestTimeout,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		h.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return h
}

// Handle processes a JSON-RPC request
func (h *Handler) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if err := h.validate.Struct(req); err != nil {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid request: "+err.Error(), nil)
	}

	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "schema":
		return h.handleSchema(req)
	case "query":
		return h.handleQuery(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found", nil)
	}
}

// handleInitialize handles the initialize request
func (h *Handler) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "1.0",
			"capabilities": map[string]interface{}{
				"methods":   []string{"initialize", "schema", "query"},
				"roots":     resolver.Roots(),
				"max_depth": h.resolver.MaxDepth(),
			},
			"serverInfo": map[string]string{
				"name":    "pagegraph",
				"version": Version,
			},
		},
	}
}

// handleSchema handles the schema request
func (h *Handler) handleSchema(req *JSONRPCRequest) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  h.schema.Describe(),
	}
}

// handleQuery handles the query request
func (h *Handler) handleQuery(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params QueryParams
	if len(bytes.TrimSpace(req.Params)) == 0 {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: 'root' is required", nil)
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}
	if err := h.validate.Struct(&params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	requestID := uuid.New().String()
	log := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     req.Method,
		"root":       params.Root,
	})

	if h.rateLimiter != nil {
		if err := h.rateLimiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("Rate limited")
			return errorResponse(req.ID, CodeRateLimited, fmt.Sprintf("rate limiter: %v", err), nil)
		}
	}

	query := resolver.Request{
		RequestID: requestID,
		Root:      params.Root,
		Selection: params.Selection,
	}
	if params.ID != nil {
		id := models.ID(*params.ID)
		query.ID = &id
	}

	start := time.Now()
	value, err := h.resolver.Resolve(ctx, query)
	log = log.WithField("duration", time.Since(start))
	if err != nil {
		log.WithError(err).Info("Query failed")
		return resolveErrorResponse(req.ID, err)
	}
	if errs := value.Errors(); len(errs) > 0 {
		log.WithField("subtree_errors", len(errs)).Info("Query resolved with errors")
	} else {
		log.Info("Query resolved")
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  QueryResult{RequestID: requestID, Data: value},
	}
}

// resolveErrorResponse maps a request-fatal resolver error onto a JSON-RPC error
func resolveErrorResponse(id interface{}, err error) *JSONRPCResponse {
	e, ok := errors.As(err)
	if !ok {
		return errorResponse(id, CodeInternalError, err.Error(), nil)
	}
	return errorResponse(id, ErrorCode(e.Type), e.Error(), e.Marker())
}

// ErrorCode returns the JSON-RPC error code for an error type
func ErrorCode(t errors.ErrorType) int {
	switch t {
	case errors.ErrorTypeValidation:
		return CodeValidation
	case errors.ErrorTypeNotFound:
		return CodeNotFound
	case errors.ErrorTypeResolution:
		return CodeResolution
	case errors.ErrorTypeDepthExceeded:
		return CodeDepthExceeded
	case errors.ErrorTypeCanceled:
		return CodeCanceled
	default:
		return CodeInternalError
	}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
