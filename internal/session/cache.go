package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultIdentityCacheTTL = 30 * time.Second

type IdentityCache interface {
	Get(ctx context.Context, userID int64) (Account, bool, error)
	Set(ctx context.Context, acct Account, ttl time.Duration) error
	Invalidate(ctx context.Context, userID int64) error
}

// RedisIdentityCache keeps account snapshots as JSON under "<prefix><id>".
type RedisIdentityCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdentityCache(client redis.UniversalClient, prefix string) *RedisIdentityCache {
	if prefix == "" {
		prefix = "hallynk:identity:"
	}
	return &RedisIdentityCache{client: client, prefix: prefix}
}

func (c *RedisIdentityCache) key(userID int64) string {
	return c.prefix + strconv.FormatInt(userID, 10)
}

func (c *RedisIdentityCache) Get(ctx context.Context, userID int64) (Account, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, false, nil
		}
		return Account{}, false, fmt.Errorf("redis get: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		// Unreadable entries are treated as misses and overwritten on the next Set.
		return Account{}, false, nil
	}
	return acct, true, nil
}

func (c *RedisIdentityCache) Set(ctx context.Context, acct Account, ttl time.Duration) error {
	if acct.ID <= 0 {
		return errors.New("account id must not be empty")
	}
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	return c.client.Set(ctx, c.key(acct.ID), data, ttl).Err()
}

func (c *RedisIdentityCache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

// CachedAccounts puts an IdentityCache in front of AccountByID, the lookup
// every cookie-authenticated request performs. Cache failures degrade to the
// underlying source rather than failing the request.
type CachedAccounts struct {
	Next  Accounts
	Cache IdentityCache
	TTL   time.Duration
}

func (c *CachedAccounts) AccountByID(ctx context.Context, id int64) (Account, error) {
	if c.Cache != nil {
		if acct, ok, err := c.Cache.Get(ctx, id); err == nil && ok {
			return acct, nil
		}
	}
	acct, err := c.Next.AccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if c.Cache != nil {
		ttl := c.TTL
		if ttl <= 0 {
			ttl = DefaultIdentityCacheTTL
		}
		_ = c.Cache.Set(ctx, acct, ttl)
	}
	return acct, nil
}

func (c *CachedAccounts) AccountByEmail(ctx context.Context, email string) (Account, error) {
	return c.Next.AccountByEmail(ctx, email)
}

// Invalidate drops the cached snapshot after a role or status change.
func (c *CachedAccounts) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Invalidate(ctx, userID)
}
