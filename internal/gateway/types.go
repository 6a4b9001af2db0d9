package gateway

import (
	"encoding/json"

	"github.com/rohankatakam/pagegraph/internal/resolver"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc" validate:"eq=2.0"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method" validate:"required"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes. The -32000 range is server-defined.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeRateLimited   = -32000
	CodeValidation    = -32001
	CodeNotFound      = -32002
	CodeResolution    = -32003
	CodeDepthExceeded = -32004
	CodeCanceled      = -32005
)

// QueryParams are the params of the query method. Selection accepts the
// ordered mapping form or a compact text string; absent means every field.
type QueryParams struct {
	Root      string             `json:"root" validate:"required"`
	ID        *uint64            `json:"id,omitempty" validate:"omitempty,min=1"`
	Selection resolver.Selection `json:"selection,omitempty"`
}

// QueryResult is the result of the query method
type QueryResult struct {
	RequestID string         `json:"request_id"`
	Data      resolver.Value `json:"data"`
}
