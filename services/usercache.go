package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"mmtools/contract"
	errs "mmtools/errors"
)

// UnknownUser is the placeholder label when a user id cannot be resolved.
const UnknownUser = "Unknown"

// userCacheSize bounds the cache so long-running stream sessions cannot
// grow it without limit.
const userCacheSize = 128

// UserCache maps user ids to display names, write-once per key, with
// oldest-unused eviction once the capacity is exceeded. It is shared by the
// channel service and the event watcher; both resolve a given id through the
// remote directory at most once per process lifetime.
type UserCache struct {
	log    *slog.Logger
	remote contract.UserDirectory

	mu    sync.Mutex
	cache *lru.Cache[string, string]
}

func NewUserCache(log *slog.Logger, remote contract.UserDirectory) *UserCache {
	// lru.New only fails on a non-positive size
	cache, _ := lru.New[string, string](userCacheSize)
	return &UserCache{log: log, remote: remote, cache: cache}
}

// Resolve returns the display name for a user id, looking it up remotely on
// a cache miss. A missing user resolves (and caches) as UnknownUser; a
// transport failure resolves as UnknownUser without caching, so a later call
// can still succeed.
func (c *UserCache) Resolve(ctx context.Context, id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.cache.Get(id); ok {
		return name
	}

	user, err := c.remote.UserByID(ctx, id)
	switch {
	case err == nil:
		c.cache.Add(id, user.Username)
		return user.Username
	case errors.Is(err, errs.ErrNotFound):
		c.cache.Add(id, UnknownUser)
		return UnknownUser
	default:
		c.log.Warn("User lookup failed", "user_id", id, "error", err)
		return UnknownUser
	}
}

// Len returns the number of cached names.
func (c *UserCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
