package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSEEvent is one frame read from the event stream. Heartbeat comments are
// recorded with Type "heartbeat" and no data.
type SSEEvent struct {
	Type string
	Data json.RawMessage
}

// Payload decodes the "data" member of the bus event carried by e into v.
func (e *SSEEvent) Payload(v interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(e.Data, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, v)
}

// SSEClient reads the commander event stream in the background and keeps
// every frame it sees.
type SSEClient struct {
	BaseURL string

	mu      sync.Mutex
	events  []SSEEvent
	notify  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	readErr error
}

// NewSSEClient creates a new SSE test client
func NewSSEClient(baseURL string) *SSEClient {
	return &SSEClient{
		BaseURL: baseURL,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Connect opens the stream at path and starts reading it.
func (c *SSEClient) Connect(ctx context.Context, path string) error {
	ctx, c.cancel = context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open until Close.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connect %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("connect %s: status %d", path, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return fmt.Errorf("connect %s: content type %q", path, ct)
	}

	go func() {
		defer close(c.done)
		defer resp.Body.Close()
		c.read(bufio.NewScanner(resp.Body))
	}()
	return nil
}

func (c *SSEClient) read(sc *bufio.Scanner) {
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var frame SSEEvent
	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				frame.Data = json.RawMessage(data.String())
				c.add(frame)
			}
			frame = SSEEvent{}
			data.Reset()
		case strings.HasPrefix(line, ":"):
			c.add(SSEEvent{Type: "heartbeat"})
		case strings.HasPrefix(line, "event:"):
			frame.Type = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(line[len("data:"):]))
		}
	}

	c.mu.Lock()
	c.readErr = sc.Err()
	c.mu.Unlock()
}

func (c *SSEClient) add(evt SSEEvent) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// find returns the first recorded event of eventType.
func (c *SSEClient) find(eventType string) (SSEEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, evt := range c.events {
		if evt.Type == eventType {
			return evt, true
		}
	}
	return SSEEvent{}, false
}

// WaitForEvent waits until an event of eventType has been received. Events
// received before the call count.
func (c *SSEClient) WaitForEvent(eventType string, timeout time.Duration) (*SSEEvent, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if evt, ok := c.find(eventType); ok {
			return &evt, nil
		}
		select {
		case <-c.notify:
		case <-c.done:
			if evt, ok := c.find(eventType); ok {
				return &evt, nil
			}
			return nil, fmt.Errorf("stream closed before %s", eventType)
		case <-deadline.C:
			return nil, fmt.Errorf("timeout waiting for event: %s", eventType)
		}
	}
}

// HasEventType checks if an event type was received
func (c *SSEClient) HasEventType(eventType string) bool {
	_, ok := c.find(eventType)
	return ok
}

// Events returns a copy of everything received so far.
func (c *SSEClient) Events() []SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SSEEvent(nil), c.events...)
}

// Err returns the read error that ended the stream, if any.
func (c *SSEClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close closes the SSE connection
func (c *SSEClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
