package agentdef

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom"
)

func TestNormalize(t *testing.T) {
	t.Run("empty payload gets defaults", func(t *testing.T) {
		def := Normalize("agent-1", Payload{})

		assert.Equal(t, "agent-1", def.AgentID)
		assert.Equal(t, "agent-1", def.Name, "name falls back to the agent id")
		assert.Equal(t, DefaultModel, def.Model)
		assert.Equal(t, DefaultTemperature, def.Temperature)
		assert.Equal(t, DefaultMaxTokens, def.MaxTokens)
		assert.Empty(t, def.Tools)
		assert.NotNil(t, def.Tools)
	})

	t.Run("explicit fields are kept", func(t *testing.T) {
		temp := 0.0
		def := Normalize("agent-1", Payload{
			Name:         "Helper",
			SystemPrompt: "You assist.",
			Model:        "claude-sonnet-4-5",
			Temperature:  &temp,
			MaxTokens:    1024,
			Tools:        []loom.Tool{{Name: "lookup"}},
		})

		assert.Equal(t, "Helper", def.Name)
		assert.Equal(t, "You assist.", def.Instructions)
		assert.Equal(t, "claude-sonnet-4-5", def.Model)
		assert.Equal(t, 0.0, def.Temperature, "explicit zero temperature is not defaulted")
		assert.Equal(t, 1024, def.MaxTokens)
		require.Len(t, def.Tools, 1)
		assert.Equal(t, "lookup", def.Tools[0].Name)
	})
}

func TestResolverCaching(t *testing.T) {
	t.Run("second resolve hits the cache", func(t *testing.T) {
		var fetches atomic.Int32
		r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
			fetches.Add(1)
			return Payload{Name: "Helper"}, nil
		}))

		first, err := r.Resolve(context.Background(), "agent-1", "")
		require.NoError(t, err)
		second, err := r.Resolve(context.Background(), "agent-1", "")
		require.NoError(t, err)

		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, first, second)
	})

	t.Run("concurrent resolves for an uncached id fetch once", func(t *testing.T) {
		var fetches atomic.Int32
		release := make(chan struct{})
		r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
			fetches.Add(1)
			<-release
			return Payload{Name: "Helper"}, nil
		}))

		const callers = 8
		defs := make([]Definition, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				def, err := r.Resolve(context.Background(), "agent-1", "")
				require.NoError(t, err)
				defs[i] = def
			}(i)
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), fetches.Load(), "exactly one external fetch")
		for i := 1; i < callers; i++ {
			assert.Equal(t, defs[0], defs[i], "all callers see equal definitions")
		}
	})

	t.Run("distinct ids fetch independently", func(t *testing.T) {
		var fetches atomic.Int32
		r := NewResolver(FetcherFunc(func(_ context.Context, agentID, _ string) (Payload, error) {
			fetches.Add(1)
			return Payload{Name: agentID}, nil
		}))

		_, err := r.Resolve(context.Background(), "a", "")
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), "b", "")
		require.NoError(t, err)
		assert.Equal(t, int32(2), fetches.Load())
	})
}

func TestResolverErrors(t *testing.T) {
	t.Run("fetch failure leaves the cache empty so a retry works", func(t *testing.T) {
		var fetches atomic.Int32
		fail := errors.New("boom")
		r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
			if fetches.Add(1) == 1 {
				return Payload{}, fail
			}
			return Payload{Name: "Helper"}, nil
		}))

		_, err := r.Resolve(context.Background(), "agent-1", "")
		var rerr *ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "agent-1", rerr.AgentID)
		assert.ErrorIs(t, err, fail)

		_, cached := r.Cached("agent-1")
		assert.False(t, cached)

		def, err := r.Resolve(context.Background(), "agent-1", "")
		require.NoError(t, err)
		assert.Equal(t, "Helper", def.Name)
		assert.Equal(t, int32(2), fetches.Load())
	})
}

func TestResolverInvalidate(t *testing.T) {
	var fetches atomic.Int32
	r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
		fetches.Add(1)
		return Payload{Name: "Helper"}, nil
	}))

	_, err := r.Resolve(context.Background(), "agent-1", "")
	require.NoError(t, err)
	r.Invalidate("agent-1")
	_, err = r.Resolve(context.Background(), "agent-1", "")
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetches.Load(), "invalidation forces a refetch")
}

func TestResolverRegister(t *testing.T) {
	r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
		return Payload{}, errors.New("should not fetch")
	}))

	r.Register("agent-1", Definition{Name: "Installed", Model: "claude-sonnet-4-5"})

	def, err := r.Resolve(context.Background(), "agent-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Installed", def.Name)
	assert.Equal(t, "agent-1", def.AgentID)
}

func TestResolverReturnsCopies(t *testing.T) {
	r := NewResolver(FetcherFunc(func(context.Context, string, string) (Payload, error) {
		return Payload{
			Tools:     []loom.Tool{{Name: "lookup"}},
			Variables: map[string]string{"k": "v"},
		}, nil
	}))

	def, err := r.Resolve(context.Background(), "agent-1", "")
	require.NoError(t, err)
	def.Tools[0].Name = "mutated"
	def.Variables["k"] = "mutated"

	again, err := r.Resolve(context.Background(), "agent-1", "")
	require.NoError(t, err)
	assert.Equal(t, "lookup", again.Tools[0].Name)
	assert.Equal(t, "v", again.Variables["k"])
}
