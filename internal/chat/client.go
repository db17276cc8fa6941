package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// ErrorMessage is the assistant turn appended when a request fails.
const ErrorMessage = "Sorry, I encountered an error. Please try again."

var (
	// ErrBusy is returned by Send while a previous request is still in flight.
	ErrBusy = errors.New("chat request already in progress")
	// ErrRequestFailed wraps non-success responses.
	ErrRequestFailed = errors.New("chat request failed")
)

// State is the client's position in a request lifecycle.
type State int

const (
	Idle State = iota
	Sending
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const readBufferSize = 4096

// Client sends conversations to the chat endpoint and streams the reply
// into the conversation as it arrives.
type Client struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header

	// OnUpdate, when set, is called after every change to the conversation.
	OnUpdate func(conv *Conversation)

	mu    sync.Mutex
	state State
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// NewClient creates a Client posting to endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Send posts the whole conversation and streams the assistant reply into it.
// On any failure ErrorMessage is appended as an assistant turn and the error
// is returned. The client is Idle again when Send returns.
func (c *Client) Send(ctx context.Context, conv *Conversation) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = Sending
	c.mu.Unlock()
	defer c.setState(Idle)

	if err := c.send(ctx, conv); err != nil {
		conv.Append(models.ChatMessage{Role: models.RoleAssistant, Content: ErrorMessage})
		c.notify(conv)
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, conv *Conversation) error {
	payload, err := json.Marshal(struct {
		Messages []models.ChatMessage `json:"messages"`
	}{Messages: conv.Messages()})
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range c.header {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach chat endpoint: %w", err)
	}
	if resp.Body == nil {
		return fmt.Errorf("%w: empty response body", ErrRequestFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrRequestFailed, decodeErrorBody(resp))
	}

	c.setState(Streaming)
	return c.stream(resp.Body, conv)
}

func (c *Client) stream(body io.Reader, conv *Conversation) error {
	var (
		decoder Decoder
		parser  Parser
		reply   strings.Builder
		index   = -1
	)

	apply := func(deltas []string) {
		for _, delta := range deltas {
			reply.WriteString(delta)
			index = conv.WriteReply(index, reply.String())
			c.notify(conv)
		}
	}

	buf := make([]byte, readBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			deltas, done := parser.Feed(decoder.Decode(buf[:n]))
			apply(deltas)
			if done {
				return nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			// A final line may arrive without its newline
			tail := decoder.Flush()
			if tail != "" || parser.Pending() != "" {
				deltas, _ := parser.Feed(tail + "\n")
				apply(deltas)
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read chat stream: %w", readErr)
		}
	}
}

func (c *Client) notify(conv *Conversation) {
	if c.OnUpdate != nil {
		c.OnUpdate(conv)
	}
}

// decodeErrorBody extracts a message from a JSON error response.
func decodeErrorBody(resp *http.Response) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || json.Unmarshal(raw, &body) != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if body.Message != "" {
		return body.Message
	}
	var errString string
	if json.Unmarshal(body.Error, &errString) == nil && errString != "" {
		return errString
	}
	var errObject struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &errObject) == nil && errObject.Message != "" {
		return errObject.Message
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
