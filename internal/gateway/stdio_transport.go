package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxLineSize = 4 * 1024 * 1024

// StdioTransport handles line-delimited JSON-RPC communication over a
// reader/writer pair, normally stdin and stdout
type StdioTransport struct {
	scanner *bufio.Scanner
	out     io.Writer
	handler *Handler
	logger  *logrus.Logger
	mu      sync.Mutex
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(handler *Handler, in io.Reader, out io.Writer, logger *logrus.Logger) *StdioTransport {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &StdioTransport{
		scanner: scanner,
		out:     out,
		handler: handler,
		logger:  logger,
	}
}

// Start reads requests until the input is exhausted or ctx is cancelled.
// Requests without an id are notifications and get no response.
func (t *StdioTransport) Start(ctx context.Context) error {
	for t.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.logger.WithError(err).Debug("Malformed request")
			t.send(errorResponse(nil, CodeParseError, "Parse error", nil))
			continue
		}

		response := t.handler.Handle(ctx, &req)
		if req.ID == nil {
			continue
		}
		t.send(response)
	}
	return t.scanner.Err()
}

// send writes one response per line
func (t *StdioTransport) send(response *JSONRPCResponse) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response); err != nil {
		t.logger.WithError(err).Error("Failed to encode response")
		buf.Reset()
		_ = enc.Encode(errorResponse(response.ID, CodeInternalError, "failed to encode response", nil))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.out.Write(buf.Bytes()); err != nil {
		t.logger.WithError(err).Error("Failed to write response")
	}
}
