package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu    sync.Mutex
	calls map[string]int
	ids   map[string]string
	fail  map[string]error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		calls: make(map[string]int),
		ids:   make(map[string]string),
		fail:  make(map[string]error),
	}
}

func (f *fakeLookup) IssueID(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err, ok := f.fail[key]; ok {
		return "", err
	}
	return f.ids[key], nil
}

func TestResolverCachesPerKey(t *testing.T) {
	lookup := newFakeLookup()
	lookup.ids["PROJ-1"] = "10001"

	resolver := NewResolver(lookup)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, err := resolver.Resolve(ctx, "PROJ-1")
		require.NoError(t, err)
		assert.Equal(t, "10001", id)
	}

	assert.Equal(t, 1, lookup.calls["PROJ-1"])
	assert.Equal(t, 1, resolver.CachedKeys())
}

func TestResolverDoesNotCacheFailures(t *testing.T) {
	lookup := newFakeLookup()
	notFound := errors.New("issue not found")
	lookup.fail["PROJ-404"] = notFound

	resolver := NewResolver(lookup)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "PROJ-404")
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "PROJ-404", resErr.TaskKey)
	assert.ErrorIs(t, err, notFound)

	// The key recovers mid-run: the next resolve re-queries.
	delete(lookup.fail, "PROJ-404")
	lookup.ids["PROJ-404"] = "10404"

	id, err := resolver.Resolve(ctx, "PROJ-404")
	require.NoError(t, err)
	assert.Equal(t, "10404", id)
	assert.Equal(t, 2, lookup.calls["PROJ-404"])
}

func TestResolverDistinctKeys(t *testing.T) {
	lookup := newFakeLookup()
	lookup.ids["PROJ-1"] = "10001"
	lookup.ids["PROJ-2"] = "10002"

	resolver := NewResolver(lookup)
	ctx := context.Background()

	id1, err := resolver.Resolve(ctx, "PROJ-1")
	require.NoError(t, err)
	id2, err := resolver.Resolve(ctx, "PROJ-2")
	require.NoError(t, err)

	assert.Equal(t, "10001", id1)
	assert.Equal(t, "10002", id2)
	assert.Equal(t, 2, resolver.CachedKeys())
}
