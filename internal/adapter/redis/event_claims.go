package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "event:claim:"

// Deletes the claim only if this instance still holds it.
var releaseScript = goredis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Extends the claim only if this instance still holds it.
var renewScript = goredis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// EventClaims implements domain.EventClaims with one SETNX key per scope.
type EventClaims struct {
	rdb        *goredis.Client
	instanceID string
}

// NewEventClaims creates a claim store. instanceID should be unique per
// instance (e.g., hostname-PID).
func NewEventClaims(rdb *goredis.Client, instanceID string) *EventClaims {
	return &EventClaims{rdb: rdb, instanceID: instanceID}
}

// Claim reserves the scope for this instance. It returns false if any
// instance, including this one, already holds it.
func (c *EventClaims) Claim(ctx context.Context, scopeID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, claimKeyPrefix+scopeID, c.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim scope %s: %w", scopeID, err)
	}
	return ok, nil
}

// Renew extends the claim's TTL. It returns false when the claim was lost,
// either by expiring or by another instance taking the scope.
func (c *EventClaims) Renew(ctx context.Context, scopeID string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, c.rdb, []string{claimKeyPrefix + scopeID}, c.instanceID, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to renew claim for scope %s: %w", scopeID, err)
	}
	return n == 1, nil
}

func (c *EventClaims) Release(ctx context.Context, scopeID string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{claimKeyPrefix + scopeID}, c.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release scope %s: %w", scopeID, err)
	}
	return nil
}
