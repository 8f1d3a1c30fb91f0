package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
)

const (
	ActionPublish = "publish"
	ActionUpdate  = "update"
	ActionRetract = "retract"

	// Late joiners recover the latest announcement state from history.
	historySize = 16
	historyTTL  = 24 * time.Hour
)

// announcementMessage is the JSON pushed to viewers.
type announcementMessage struct {
	Action       string               `json:"action"`
	MessageID    string               `json:"message_id"`
	Announcement *domain.Announcement `json:"announcement,omitempty"`
}

// Announcer implements domain.Announcer by publishing to the scope channel.
type Announcer struct {
	node    *centrifuge.Node
	metrics *metrics.AnnouncementMetrics
}

func NewAnnouncer(node *centrifuge.Node, annMetrics *metrics.AnnouncementMetrics) *Announcer {
	return &Announcer{node: node, metrics: annMetrics}
}

// Publish pushes a new announcement. The returned handle's ID is a fresh
// message id that reactions must reference.
func (a *Announcer) Publish(ctx context.Context, scopeID string, content domain.Announcement) (domain.MessageHandle, error) {
	handle := domain.MessageHandle{ID: uuid.NewString(), Channel: ChannelFor(scopeID)}
	if err := a.push(ctx, handle, ActionPublish, &content); err != nil {
		return domain.MessageHandle{}, err
	}
	return handle, nil
}

func (a *Announcer) Update(ctx context.Context, handle domain.MessageHandle, content domain.Announcement) error {
	return a.push(ctx, handle, ActionUpdate, &content)
}

func (a *Announcer) Retract(ctx context.Context, handle domain.MessageHandle) error {
	return a.push(ctx, handle, ActionRetract, nil)
}

func (a *Announcer) push(ctx context.Context, handle domain.MessageHandle, action string, content *domain.Announcement) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s announcement: %w", action, err)
	}

	data, err := json.Marshal(announcementMessage{Action: action, MessageID: handle.ID, Announcement: content})
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	if _, err := a.node.Publish(handle.Channel, data, centrifuge.WithHistory(historySize, historyTTL)); err != nil {
		if a.metrics != nil {
			a.metrics.Failures.WithLabelValues(action).Inc()
		}
		return fmt.Errorf("publish to channel %s: %w", handle.Channel, err)
	}

	if a.metrics != nil {
		a.metrics.Published.WithLabelValues(action).Inc()
	}
	return nil
}
