package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// NotificationPublisher fans ingested notifications out to every instance.
type NotificationPublisher struct {
	rdb *goredis.Client
}

func NewNotificationPublisher(rdb *goredis.Client) *NotificationPublisher {
	return &NotificationPublisher{rdb: rdb}
}

func (p *NotificationPublisher) PublishReaction(ctx context.Context, r domain.ReactionAdded) error {
	return p.publish(ctx, reactionsChannel, r)
}

func (p *NotificationPublisher) PublishMessageDeleted(ctx context.Context, m domain.MessageDeleted) error {
	return p.publish(ctx, deletionsChannel, m)
}

func (p *NotificationPublisher) publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s notification: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", channel, err)
	}
	return nil
}
