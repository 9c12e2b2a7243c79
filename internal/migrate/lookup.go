package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluele/gcache"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/store"
)

const DefaultActorCacheSize = 256

// ActorLookup resolves the actor a scene token references. A missing actor
// is reported as (nil, nil); errors are reserved for lookup failures.
type ActorLookup interface {
	LookupActor(ctx context.Context, id string) (*entity.Document, error)
}

type ActorLookupFunc func(ctx context.Context, id string) (*entity.Document, error)

func (f ActorLookupFunc) LookupActor(ctx context.Context, id string) (*entity.Document, error) {
	return f(ctx, id)
}

// WorldActors resolves tokens against the live world actors.
func WorldActors(world store.World) ActorLookup {
	return ActorLookupFunc(func(ctx context.Context, id string) (*entity.Document, error) {
		doc, err := world.GetWorldDocument(ctx, entity.KindActor, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// CachedLookup memoizes an ActorLookup in an LRU, misses included. Callers
// always receive their own copy of the cached document.
type CachedLookup struct {
	inner ActorLookup
	cache gcache.Cache
}

func NewCachedLookup(inner ActorLookup, size int) *CachedLookup {
	if size <= 0 {
		size = DefaultActorCacheSize
	}
	return &CachedLookup{
		inner: inner,
		cache: gcache.New(size).LRU().Build(),
	}
}

func (c *CachedLookup) LookupActor(ctx context.Context, id string) (*entity.Document, error) {
	if cached, err := c.cache.Get(id); err == nil {
		return cloneDoc(cached.(*entity.Document)), nil
	}

	doc, err := c.inner.LookupActor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(id, cloneDoc(doc)); err != nil {
		return nil, fmt.Errorf("caching actor %s: %w", id, err)
	}
	return doc, nil
}

func cloneDoc(doc *entity.Document) *entity.Document {
	if doc == nil {
		return nil
	}
	clone := doc.Clone()
	return &clone
}
