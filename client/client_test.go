package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom"
	"github.com/agentloom/loom/event"
	"github.com/agentloom/loom/session"
)

func sseServer(t *testing.T, events []event.Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, ev := range events {
			data, err := ev.ToJSON()
			require.NoError(t, err)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func TestClientRun(t *testing.T) {
	srv := sseServer(t, []event.Event{
		event.NewRunStarted("t1", "r1"),
		event.NewTextMessageStart("m1", "assistant"),
		event.NewTextMessageContent("m1", "Hel"),
		event.NewTextMessageContent("m1", "lo"),
		event.NewTextMessageEnd("m1"),
		event.NewRunFinished("t1", "r1"),
	})

	c := New(srv.URL)
	sess, err := c.Run(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, loom.RunFinished, sess.Status())
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.True(t, msgs[0].Sealed)
}

func TestClientRunGeneratesIDs(t *testing.T) {
	srv := sseServer(t, []event.Event{
		event.NewRunStarted("t1", "r1"),
		event.NewRunFinished("t1", "r1"),
	})

	input := &event.RunAgentInput{}
	sess, err := New(srv.URL).Run(context.Background(), input)
	require.NoError(t, err)
	assert.NotEmpty(t, input.ThreadID)
	assert.NotEmpty(t, input.RunID)
	assert.Equal(t, input.ThreadID, sess.ThreadID())
}

func TestClientRunCancelsOnTruncatedStream(t *testing.T) {
	srv := sseServer(t, []event.Event{
		event.NewRunStarted("t1", "r1"),
		event.NewTextMessageChunk("m1", "assistant", "partial"),
	})

	sess, err := New(srv.URL).Run(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, loom.RunErrored, sess.Status())
	require.NotNil(t, sess.Err())
	assert.Equal(t, session.CancelledCode, sess.Err().Code)
	assert.True(t, sess.Messages()[0].Sealed)
}

func TestClientRunSkipsInvalidEvents(t *testing.T) {
	srv := sseServer(t, []event.Event{
		event.NewRunStarted("t1", "r1"),
		event.NewTextMessageContent("ghost", "x"), // no start, rejected
		event.NewTextMessageChunk("m1", "assistant", "ok"),
		event.NewRunFinished("t1", "r1"),
	})

	sess, err := New(srv.URL).Run(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, loom.RunFinished, sess.Status())
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ok", msgs[0].Content)
}

func TestClientOpen(t *testing.T) {
	srv := sseServer(t, []event.Event{
		event.NewRunStarted("t1", "r1"),
		event.NewCustom("note", "hi"),
	})

	stream, err := New(srv.URL).Open(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, event.TypeRunStarted, ev.Type)

	ev, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, event.TypeCustom, ev.Type)
	assert.Equal(t, "note", ev.Name)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClientConnectRetry(t *testing.T) {
	t.Run("transient status is retried", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			ev := event.NewRunStarted("t1", "r1")
			data, _ := ev.ToJSON()
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		}))
		defer srv.Close()

		c := New(srv.URL, WithRetry(fastRetry(3)))
		stream, err := c.Open(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
		require.NoError(t, err)
		defer stream.Close()

		assert.Equal(t, int32(2), requests.Load())
	})

	t.Run("client errors fail immediately", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.Error(w, "bad token", http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := New(srv.URL, WithRetry(fastRetry(3)))
		_, err := c.Open(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})

		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, http.StatusUnauthorized, serr.Code)
		assert.Equal(t, int32(1), requests.Load(), "no retry on a client error")
	})

	t.Run("attempts are exhausted", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := New(srv.URL, WithRetry(fastRetry(3)))
		_, err := c.Open(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})

		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, int32(3), requests.Load())
	})
}

func TestClientSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	c := New(srv.URL, WithCredentials("secret"))
	stream, err := c.Open(context.Background(), &event.RunAgentInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)
	stream.Close()
}
