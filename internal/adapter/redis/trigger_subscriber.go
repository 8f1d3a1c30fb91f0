package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const (
	reactionsChannel = "reactions:added"
	deletionsChannel = "messages:deleted"
)

// NotificationSink receives decoded notifications, typically the in-process bus.
type NotificationSink interface {
	PublishTrigger(t domain.Trigger)
	PublishAnchorRemoved(anchorID string)
}

// TriggerSubscriber forwards chat notifications published on Redis to the
// local sink, so every instance sees every reaction regardless of which one
// received the webhook.
type TriggerSubscriber struct {
	rdb    *goredis.Client
	sink   NotificationSink
	clock  clockwork.Clock
	marker string
}

func NewTriggerSubscriber(rdb *goredis.Client, sink NotificationSink, clock clockwork.Clock, marker string) *TriggerSubscriber {
	return &TriggerSubscriber{rdb: rdb, sink: sink, clock: clock, marker: marker}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (s *TriggerSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, reactionsChannel, deletionsChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handle(correlation.WithID(ctx, correlation.NewID()), msg.Channel, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *TriggerSubscriber) handle(ctx context.Context, channel, payload string) {
	switch channel {
	case reactionsChannel:
		var r domain.ReactionAdded
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			slog.WarnContext(ctx, "Malformed reaction notification", "error", err)
			return
		}
		if err := r.Validate(); err != nil {
			slog.WarnContext(ctx, "Invalid reaction notification", "error", err)
			return
		}
		s.sink.PublishTrigger(r.Trigger(s.clock.Now(), s.marker))

	case deletionsChannel:
		var m domain.MessageDeleted
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			slog.WarnContext(ctx, "Malformed message deletion notification", "error", err)
			return
		}
		if err := m.Validate(); err != nil {
			slog.WarnContext(ctx, "Invalid message deletion notification", "error", err)
			return
		}
		slog.DebugContext(ctx, "Message deleted", "message_id", m.MessageID)
		s.sink.PublishAnchorRemoved(m.MessageID)

	default:
		slog.WarnContext(ctx, "Notification on unexpected channel", "channel", channel)
	}
}
