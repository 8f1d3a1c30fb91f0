package domain

import (
	"context"
	"time"
)

// NotificationSource delivers chat notifications to registered handlers.
// Each registration returns a function that removes the handler again.
type NotificationSource interface {
	OnTrigger(handler func(Trigger)) (unsubscribe func())
	OnAnchorRemoved(handler func(anchorID string)) (unsubscribe func())
}

// EventClaims guarantees at most one active event per scope across instances.
// Claims expire unless renewed, so a crashed instance frees its scopes.
type EventClaims interface {
	Claim(ctx context.Context, scopeID string, ttl time.Duration) (bool, error)
	// Renew extends a claim this instance still holds. It returns false when
	// the claim has expired or belongs to another instance.
	Renew(ctx context.Context, scopeID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scopeID string) error
}
