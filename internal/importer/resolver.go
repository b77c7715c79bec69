package importer

import (
	"context"
	"fmt"
	"sync"
)

// IssueLookup asks the issue tracker for the backend identifier of a ticket
// key. Implemented by jira.Client; tests plug in fakes.
type IssueLookup interface {
	IssueID(ctx context.Context, key string) (string, error)
}

// ResolutionError wraps a failed lookup with the key that caused it.
type ResolutionError struct {
	TaskKey string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.TaskKey, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver memoizes ticket-key resolution for the duration of one run. The
// same key recurs across many rows, so each distinct key hits the tracker at
// most once. Failed lookups are not cached: a later row with the same key
// re-queries, which keeps a transient tracker hiccup from poisoning the run.
type Resolver struct {
	lookup IssueLookup

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver builds a resolver with an empty per-run cache.
func NewResolver(lookup IssueLookup) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  make(map[string]string),
	}
}

// Resolve returns the backend issue identifier for key.
func (r *Resolver) Resolve(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	if id, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	id, err := r.lookup.IssueID(ctx, key)
	if err != nil {
		return "", &ResolutionError{TaskKey: key, Err: err}
	}

	r.mu.Lock()
	r.cache[key] = id
	r.mu.Unlock()
	return id, nil
}

// CachedKeys returns how many distinct keys have been resolved so far.
func (r *Resolver) CachedKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
