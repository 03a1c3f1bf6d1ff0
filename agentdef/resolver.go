package agentdef

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Fetcher retrieves the raw configuration payload for one agent from an
// external source.
type Fetcher interface {
	Fetch(ctx context.Context, agentID, credentials string) (Payload, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, agentID, credentials string) (Payload, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, agentID, credentials string) (Payload, error) {
	return f(ctx, agentID, credentials)
}

// ResolutionError reports a failed configuration fetch. The cache is left
// unpopulated for the agent id, so a later Resolve may retry.
type ResolutionError struct {
	AgentID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving agent %q: %v", e.AgentID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// call tracks one in-flight fetch so concurrent Resolve calls for the same
// uncached agent id share a single external request.
type call struct {
	done chan struct{}
	def  Definition
	err  error
}

// Resolver caches normalized agent definitions by agent id. It is safe for
// concurrent use; at most one external fetch is issued per agent id until
// the entry is explicitly invalidated.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.Mutex
	cache    map[string]Definition
	inflight map[string]*call
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver backed by the given fetcher.
func NewResolver(fetcher Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		logger:   slog.Default(),
		cache:    make(map[string]Definition),
		inflight: make(map[string]*call),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the definition for agentID. A cache hit returns without
// any external call. On a miss, exactly one fetch runs even under
// concurrent callers; the others wait for its result. A failed fetch is
// returned as a *ResolutionError and leaves the cache unpopulated.
func (r *Resolver) Resolve(ctx context.Context, agentID, credentials string) (Definition, error) {
	r.mu.Lock()
	if def, ok := r.cache[agentID]; ok {
		r.mu.Unlock()
		return def.clone(), nil
	}
	if c, ok := r.inflight[agentID]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			if c.err != nil {
				return Definition{}, c.err
			}
			return c.def.clone(), nil
		case <-ctx.Done():
			return Definition{}, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	r.inflight[agentID] = c
	r.mu.Unlock()

	payload, err := r.fetcher.Fetch(ctx, agentID, credentials)

	r.mu.Lock()
	delete(r.inflight, agentID)
	if err != nil {
		c.err = &ResolutionError{AgentID: agentID, Err: err}
		r.mu.Unlock()
		close(c.done)
		r.logger.Warn("agent definition fetch failed", "agent_id", agentID, "error", err)
		return Definition{}, c.err
	}
	c.def = Normalize(agentID, payload)
	r.cache[agentID] = c.def
	r.mu.Unlock()
	close(c.done)

	r.logger.Info("resolved agent definition", "agent_id", agentID, "model", c.def.Model, "tools", len(c.def.Tools))
	return c.def.clone(), nil
}

// Register installs a definition directly, replacing any cached entry for
// the same agent id. It is the re-registration path for refreshing a stale
// definition without waiting for a fetch.
func (r *Resolver) Register(agentID string, def Definition) {
	def.AgentID = agentID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[agentID] = def.clone()
}

// Invalidate drops the cached definition for agentID, so the next Resolve
// fetches again. Unknown ids are a no-op.
func (r *Resolver) Invalidate(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, agentID)
}

// Cached reports whether a definition for agentID is in the cache, and
// returns a copy of it if so. It never triggers a fetch.
func (r *Resolver) Cached(agentID string) (Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.cache[agentID]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}
