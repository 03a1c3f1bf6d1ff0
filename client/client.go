// Package client consumes a remote agent run over SSE. It posts a
// RunAgentInput to an agent endpoint, decodes the resulting event stream,
// and can drive a session to completion from it.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentloom/loom/event"
	"github.com/agentloom/loom/session"
)

// StatusError reports a non-success response to the connect request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent endpoint returned %d", e.Code)
	}
	return fmt.Sprintf("agent endpoint returned %d: %s", e.Code, e.Body)
}

// transient reports whether the status is worth retrying: rate limits and
// server-side failures are, client errors are not.
func (e *StatusError) transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client opens agent runs against a single SSE endpoint.
type Client struct {
	endpoint    string
	credentials string
	httpClient  *http.Client
	retry       RetryConfig
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. The default has no
// timeout, since an agent run legitimately streams for minutes; use the
// context to bound a run.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCredentials sets a bearer token sent on every connect request.
func WithCredentials(credentials string) Option {
	return func(c *Client) {
		c.credentials = credentials
	}
}

// WithRetry sets the connect retry configuration. Defaults to
// DefaultRetryConfig.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the agent endpoint at the given URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open posts the input and returns the event stream. Connect failures and
// transient status codes are retried with exponential backoff; the caller
// owns the returned stream and must Close it.
func (c *Client) Open(ctx context.Context, input *event.RunAgentInput) (*Stream, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}

	var lastErr error
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.delay(attempt - 1)
			c.logger.Warn("retrying connect", "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		stream, err := c.connect(ctx, body)
		if err == nil {
			return stream, nil
		}
		lastErr = err

		var serr *StatusError
		if errors.As(err, &serr) && !serr.transient() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) connect(ctx context.Context, body []byte) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.credentials != "" {
		req.Header.Set("Authorization", "Bearer "+c.credentials)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return newStream(resp.Body), nil
}

// Run opens a stream for the input and feeds every event into a new
// session until the stream ends or the run reaches a terminal state.
// Protocol violations in individual events are logged by the session and
// skipped; they never abort the run. If the stream ends before the run
// terminates, the session is cancelled so its state is still terminal.
func (c *Client) Run(ctx context.Context, input *event.RunAgentInput, opts ...session.Option) (*session.Session, error) {
	if input.ThreadID == "" {
		input.ThreadID = event.GenerateThreadID()
	}
	if input.RunID == "" {
		input.RunID = event.GenerateRunID()
	}

	sess := session.New(input.ThreadID, input.RunID, opts...)

	stream, err := c.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			sess.Cancel(err.Error())
			return sess, err
		}

		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sess.Cancel("stream broken: " + err.Error())
			return sess, err
		}

		if err := sess.Feed(ev); err != nil {
			// Already logged by the session; skip and keep consuming.
			continue
		}
		if sess.Status().Terminal() {
			break
		}
	}

	if !sess.Status().Terminal() {
		sess.Cancel("stream ended before run terminated")
	}
	return sess, nil
}

// Stream decodes SSE frames into events. It is not safe for concurrent
// use.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner}
}

// Next returns the next decoded event. It returns io.EOF when the server
// closes the stream.
func (s *Stream) Next() (event.Event, error) {
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			// Blank line terminates a frame.
			if len(data) == 0 {
				continue
			}
			return event.FromJSON([]byte(strings.Join(data, "\n")))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// "event:" lines and comments carry no payload we need; the
			// type is repeated inside the JSON body.
		}
	}
	if err := s.scanner.Err(); err != nil {
		return event.Event{}, err
	}
	if len(data) > 0 {
		return event.FromJSON([]byte(strings.Join(data, "\n")))
	}
	return event.Event{}, io.EOF
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
