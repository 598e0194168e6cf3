package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"mmtools/domain"
	errs "mmtools/errors"
)

type countingDirectory struct {
	users map[string]domain.User
	err   error
	calls map[string]int
}

func (d *countingDirectory) UserByID(_ context.Context, id string) (domain.User, error) {
	if d.calls == nil {
		d.calls = map[string]int{}
	}
	d.calls[id]++
	if d.err != nil {
		return domain.User{}, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, errs.ErrNotFound
	}
	return u, nil
}

func TestUserCache_ResolvesAtMostOncePerID(t *testing.T) {
	req := require.New(t)

	dir := &countingDirectory{users: map[string]domain.User{
		"u2": {ID: "u2", Username: "bob"},
	}}
	cache := NewUserCache(logs.GetLoggerFromLevel(slog.LevelDebug), dir)

	for range 5 {
		req.Equal("bob", cache.Resolve(context.Background(), "u2"))
	}
	req.Equal(1, dir.calls["u2"])
}

func TestUserCache_MissingUserCachedAsUnknown(t *testing.T) {
	req := require.New(t)

	dir := &countingDirectory{}
	cache := NewUserCache(logs.GetLoggerFromLevel(slog.LevelDebug), dir)

	req.Equal(UnknownUser, cache.Resolve(context.Background(), "ghost"))
	req.Equal(UnknownUser, cache.Resolve(context.Background(), "ghost"))
	req.Equal(1, dir.calls["ghost"])
}

func TestUserCache_TransportFailureNotCached(t *testing.T) {
	req := require.New(t)

	dir := &countingDirectory{err: errs.ErrRemoteUnavailable}
	cache := NewUserCache(logs.GetLoggerFromLevel(slog.LevelDebug), dir)

	req.Equal(UnknownUser, cache.Resolve(context.Background(), "u2"))

	// Once the remote recovers the next resolve succeeds.
	dir.err = nil
	dir.users = map[string]domain.User{"u2": {ID: "u2", Username: "bob"}}
	req.Equal("bob", cache.Resolve(context.Background(), "u2"))
	req.Equal(2, dir.calls["u2"])
}

func TestUserCache_BoundedGrowth(t *testing.T) {
	req := require.New(t)

	dir := &countingDirectory{users: map[string]domain.User{}}
	for i := 0; i < userCacheSize+10; i++ {
		id := fmt.Sprintf("u%d", i)
		dir.users[id] = domain.User{ID: id, Username: "name-" + id}
	}

	cache := NewUserCache(logs.GetLoggerFromLevel(slog.LevelDebug), dir)
	for i := 0; i < userCacheSize+10; i++ {
		cache.Resolve(context.Background(), fmt.Sprintf("u%d", i))
	}

	req.Equal(userCacheSize, cache.Len())

	// The oldest-unused entry was evicted and costs a second remote call.
	cache.Resolve(context.Background(), "u0")
	req.Equal(2, dir.calls["u0"])
}
