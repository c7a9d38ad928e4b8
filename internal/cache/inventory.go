package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clanhub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Only public read models are cached. Permission checks always read the store.
const (
	ClanKeyPrefix     = "clan:%d"
	ClanMembersPrefix = "clan:%d:members"
)

const (
	ClanTTL    = 5 * time.Minute
	MembersTTL = 2 * time.Minute
)

func ClanKey(clanID uint) string {
	return fmt.Sprintf(ClanKeyPrefix, clanID)
}

func ClanMembersKey(clanID uint) string {
	return fmt.Sprintf(ClanMembersPrefix, clanID)
}

// Aside reads key into dest, falling back to load on a miss and caching what
// it produced. Without a Redis client it simply calls load.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateClan drops every cached view of a clan.
func InvalidateClan(ctx context.Context, clanID uint) {
	Invalidate(ctx, ClanKey(clanID), ClanMembersKey(clanID))
}
