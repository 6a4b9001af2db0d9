package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/resolver"
	"github.com/rohankatakam/pagegraph/internal/schema"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// newTestHandler serves page 1 with blockquotes 2 and 3
func newTestHandler(t *testing.T, cfg config.GatewayConfig) *Handler {
	t.Helper()
	ctx := context.Background()
	sch := schema.Default()
	store := storage.NewMemoryStore(sch, testLogger())

	pageID, err := storage.NewPage().Create(ctx, store)
	require.NoError(t, err)
	for _, line := range []string{"> a", "> b"} {
		_, err := storage.NewBlockquote().
			Region(models.Region{Len: uint64(len(line))}).
			Lines([]string{line}).
			Page(pageID).
			Create(ctx, store)
		require.NoError(t, err)
	}

	res := resolver.New(store, config.ResolverConfig{MaxDepth: 2, Parallelism: 2}, testLogger())
	return NewHandler(res, sch, cfg, testLogger())
}

func request(method, params string) *JSONRPCRequest {
	req := &JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: method}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

// roundTrip encodes a response the way the transport does and decodes it generically
func roundTrip(t *testing.T, resp *JSONRPCResponse) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHandler_Initialize(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{})
	resp := h.Handle(context.Background(), request("initialize", ""))
	require.Nil(t, resp.Error)

	out := roundTrip(t, resp)
	result := out["result"].(map[string]interface{})
	assert.Equal(t, "1.0", result["protocolVersion"])

	caps := result["capabilities"].(map[string]interface{})
	assert.Equal(t, float64(2), caps["max_depth"])
	assert.Contains(t, caps["roots"], "block_element")
	assert.Equal(t, []interface{}{"initialize", "schema", "query"}, caps["methods"])
}

func TestHandler_Schema(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{})
	resp := h.Handle(context.Background(), request("schema", ""))
	require.Nil(t, resp.Error)

	desc, ok := resp.Result.(schema.Description)
	require.True(t, ok)
	require.Len(t, desc.Entities, 2)
	assert.Equal(t, models.KindBlockquote, desc.Entities[0].Kind)
	assert.Equal(t, models.KindPage, desc.Entities[1].Kind)
}

func TestHandler_Query(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{RequestTimeout: time.Second})

	tests := []struct {
		name   string
		params string
		want   string
	}{
		{
			name:   "mapping selection",
			params: `{"root":"page","id":1,"selection":{"id":true,"contents":{"lines":true}}}`,
			want:   `{"id":1,"contents":[{"lines":["> a"]},{"lines":["> b"]}]}`,
		},
		{
			name:   "text selection",
			params: `{"root":"blockquotes","selection":"id page"}`,
			want:   `[{"id":2,"page":{"$ref":"page:1"}},{"id":3,"page":{"$ref":"page:1"}}]`,
		},
		{
			name:   "subtree error stays in the data",
			params: `{"root":"blockquote","id":3,"selection":"id nope"}`,
			want:   `{"id":3,"nope":{"$error":{"type":"RESOLUTION","message":"Blockquote has no field \"nope\""}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Handle(context.Background(), request("query", tt.params))
			require.Nil(t, resp.Error, "unexpected error %+v", resp.Error)

			result, ok := resp.Result.(QueryResult)
			require.True(t, ok)
			assert.NotEmpty(t, result.RequestID)

			data, err := json.Marshal(result.Data)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestHandler_Errors(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{})

	tests := []struct {
		name     string
		req      *JSONRPCRequest
		wantCode int
		wantData string
	}{
		{
			name:     "wrong protocol version",
			req:      &JSONRPCRequest{JSONRPC: "1.0", ID: 1, Method: "query"},
			wantCode: CodeInvalidRequest,
		},
		{
			name:     "missing method",
			req:      &JSONRPCRequest{JSONRPC: "2.0", ID: 1},
			wantCode: CodeInvalidRequest,
		},
		{name: "unknown method", req: request("mutate", ""), wantCode: CodeMethodNotFound},
		{name: "missing params", req: request("query", ""), wantCode: CodeInvalidParams},
		{name: "params not an object", req: request("query", `[1]`), wantCode: CodeInvalidParams},
		{name: "missing root", req: request("query", `{"id":1}`), wantCode: CodeInvalidParams},
		{name: "bad selection", req: request("query", `{"root":"page","selection":"id {"}`), wantCode: CodeInvalidParams},
		{
			name:     "unknown root",
			req:      request("query", `{"root":"paragraph"}`),
			wantCode: CodeResolution,
			wantData: "RESOLUTION",
		},
		{
			name:     "missing entity",
			req:      request("query", `{"root":"page","id":42}`),
			wantCode: CodeNotFound,
			wantData: "NOT_FOUND",
		},
		{
			name:     "list root with id",
			req:      request("query", `{"root":"pages","id":1}`),
			wantCode: CodeValidation,
			wantData: "VALIDATION",
		},
		{
			name:     "depth exceeded",
			req:      request("query", `{"root":"page","selection":"contents { page { contents { id } } }"}`),
			wantCode: CodeDepthExceeded,
			wantData: "DEPTH_EXCEEDED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Handle(context.Background(), tt.req)
			require.NotNil(t, resp.Error)
			assert.Nil(t, resp.Result)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.req.ID, resp.ID)
			if tt.wantData != "" {
				marker, ok := resp.Error.Data.(errors.Marker)
				require.True(t, ok)
				assert.Equal(t, tt.wantData, marker.Type)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeCanceled, ErrorCode(errors.ErrorTypeCanceled))
	assert.Equal(t, CodeInternalError, ErrorCode(errors.ErrorTypeStorage))
	assert.Equal(t, CodeInternalError, ErrorCode(errors.ErrorTypeInternal))
}

func TestHandler_RateLimit(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{RateLimit: 0.001, Burst: 1, RequestTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	resp := h.Handle(ctx, request("query", `{"root":"page","selection":"id"}`))
	require.Nil(t, resp.Error)

	resp = h.Handle(ctx, request("query", `{"root":"page","selection":"id"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeRateLimited, resp.Error.Code)

	// Other methods are not limited
	resp = h.Handle(ctx, request("initialize", ""))
	assert.Nil(t, resp.Error)
}

func TestStdioTransport(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{})
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`{"jsonrpc":"2.0","method":"initialize"}`,
		`{not json`,
		`{"jsonrpc":"2.0","id":"q","method":"query","params":{"root":"blockquote","id":2,"selection":"lines"}}`,
	}, "\n")

	var out bytes.Buffer
	transport := NewStdioTransport(h, strings.NewReader(in), &out, testLogger())
	require.NoError(t, transport.Start(context.Background()))

	var lines []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3, "notifications and blank lines get no response")

	var first JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, float64(1), first.ID)
	assert.Nil(t, first.Error)

	var parseErr JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &parseErr))
	require.NotNil(t, parseErr.Error)
	assert.Equal(t, CodeParseError, parseErr.Error.Code)
	assert.Nil(t, parseErr.ID)

	assert.Contains(t, lines[2], `"id":"q"`)
	assert.Contains(t, lines[2], `"data":{"lines":["> a"]}`, "lines are written without HTML escaping")
}

func TestStdioTransport_StopsOnCancel(t *testing.T) {
	h := newTestHandler(t, config.GatewayConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	in := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"
	err := NewStdioTransport(h, strings.NewReader(in), &out, testLogger()).Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
}
