package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// readBufferSize is the initial buffer for the framed reader. Server
	// payloads (completion lists in particular) routinely exceed the
	// bufio default.
	readBufferSize = 64 * 1024

	// maxContentLength caps a single framed message. A header above this
	// is treated as a framing error and aborts the reader loop.
	maxContentLength = 64 * 1024 * 1024
)

// NotificationHandler receives server-initiated notifications. Handlers run
// on their own goroutine so a slow handler cannot stall the reader loop.
type NotificationHandler func(method string, params json.RawMessage)

// Request is an outgoing JSON-RPC request or notification. A nil ID marks
// a notification.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is an incoming JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Transport frames JSON-RPC 2.0 messages over a byte stream and correlates
// responses with in-flight requests. One Transport owns one server connection.
type Transport struct {
	writer io.Writer
	reader *bufio.Reader

	writeMu sync.Mutex

	nextID  atomic.Int64
	pending map[int64]chan *Response
	pendMu  sync.Mutex

	onNotification NotificationHandler

	closed atomic.Bool
	done   chan struct{}

	logger *log.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithNotificationHandler installs the handler for server notifications.
func WithNotificationHandler(h NotificationHandler) TransportOption {
	return func(t *Transport) { t.onNotification = h }
}

// WithTransportLogger replaces the default logger.
func WithTransportLogger(l *log.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

// NewTransport creates a Transport over the given streams and starts its
// reader loop. The caller keeps ownership of the underlying streams; Close
// stops the loop but does not close them.
func NewTransport(w io.Writer, r io.Reader, opts ...TransportOption) *Transport {
	t := &Transport{
		writer:  w,
		reader:  bufio.NewReaderSize(r, readBufferSize),
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.readLoop()
	return t
}

// Call sends a request and blocks until the response arrives, the timeout
// elapses, the context is canceled, or the transport closes. On timeout the
// pending entry is dropped so a late response is discarded on arrival.
func (t *Transport) Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	if t.closed.Load() {
		return nil, ErrDisposed
	}

	id := t.nextID.Add(1)
	ch := make(chan *Response, 1)

	t.pendMu.Lock()
	t.pending[id] = ch
	t.pendMu.Unlock()

	defer func() {
		t.pendMu.Lock()
		delete(t.pending, id)
		t.pendMu.Unlock()
	}()

	req := Request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	if err := t.write(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, ErrDisposed
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s after %s: %w", method, timeout, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrDisposed
	}
}

// Notify sends a notification. It does not wait for anything from the server.
func (t *Transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrDisposed
	}
	req := Request{JSONRPC: "2.0", Method: method, Params: params}
	if err := t.write(req); err != nil {
		return fmt.Errorf("notify %s: %w", method, err)
	}
	return nil
}

// Close stops the transport. Every pending request is resolved with
// ErrDisposed rather than left to hit its timeout.
func (t *Transport) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	close(t.done)
	t.failPending()
}

// Closed reports whether Close has been called or the reader loop has exited.
func (t *Transport) Closed() bool {
	return t.closed.Load()
}

// Done is closed when the transport shuts down, whether by Close or by the
// server side of the stream going away.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

func (t *Transport) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func (t *Transport) readLoop() {
	defer t.Close()

	for {
		body, err := t.readMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				t.logger.Printf("lsp: read: %v", err)
			}
			return
		}
		if body == nil {
			// Malformed frame that was skippable, keep reading.
			continue
		}
		t.dispatch(body)
	}
}

// readMessage reads one framed message. It returns (nil, nil) for a frame
// that had headers but no Content-Length, which the loop skips.
func (t *Transport) readMessage() ([]byte, error) {
	contentLength := -1

	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "content-length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("bad content-length %q: %w", value, err)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		t.logger.Printf("lsp: frame without content-length, skipping")
		return nil, nil
	}
	if contentLength > maxContentLength {
		return nil, fmt.Errorf("content-length %d exceeds limit", contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch routes one decoded message. The ID field distinguishes responses
// from notifications; server-to-client requests carry both ID and Method and
// are answered with MethodNotFound since this client serves none.
func (t *Transport) dispatch(body []byte) {
	var probe struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		t.logger.Printf("lsp: malformed message: %v", err)
		return
	}

	switch {
	case probe.ID != nil && probe.Method != "":
		t.rejectServerRequest(*probe.ID, probe.Method)
	case probe.ID != nil:
		t.resolvePending(*probe.ID, &Response{
			JSONRPC: "2.0",
			ID:      probe.ID,
			Result:  probe.Result,
			Error:   probe.Error,
		})
	case probe.Method != "":
		if t.onNotification != nil {
			go t.onNotification(probe.Method, probe.Params)
		}
	}
}

func (t *Transport) resolvePending(id int64, resp *Response) {
	t.pendMu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.pendMu.Unlock()

	if !ok {
		// Late response for a request that already timed out.
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

// rejectServerRequest answers a server-to-client request with MethodNotFound.
// Servers that send workspace/configuration or similar get a well-formed
// refusal instead of a hung request.
func (t *Transport) rejectServerRequest(id int64, method string) {
	resp := struct {
		JSONRPC string    `json:"jsonrpc"`
		ID      int64     `json:"id"`
		Error   *RPCError `json:"error"`
	}{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: CodeMethodNotFound, Message: "method not supported: " + method},
	}
	if err := t.write(resp); err != nil {
		t.logger.Printf("lsp: reject %s: %v", method, err)
	}
}

func (t *Transport) failPending() {
	t.pendMu.Lock()
	pending := t.pending
	t.pending = make(map[int64]chan *Response)
	t.pendMu.Unlock()

	for _, ch := range pending {
		select {
		case ch <- nil:
		default:
		}
	}
}
