package gate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedResolver wraps a ProfileResolver with TTL-based caching so that
// authorization checks do not hit the database on every request. Subjects
// are keyed by their fmt %v representation.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	cache *gocache.Cache
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long profiles are cached before re-fetching.
func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

type cachedProfile struct {
	profile Profile
}

func cacheKey[U comparable](user U) string {
	return fmt.Sprintf("%v", user)
}

// Resolve returns the profile for the given user, using cache if available.
// A nil profile is cached too.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	key := cacheKey(user)
	if v, ok := r.cache.Get(key); ok {
		return v.(cachedProfile).profile, nil
	}

	profile, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, cachedProfile{profile: profile})
	return profile, nil
}

// Invalidate removes a subject from the cache.
// Call this when a subject's role changes.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.cache.Delete(cacheKey(user))
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver[U]) InvalidateAll() {
	r.cache.Flush()
}
