package domain

import (
	"context"
	"time"
)

const AnnouncementKindReaction = "reaction"

// Announcement is the display content of an event message.
type Announcement struct {
	Kind         string    `json:"kind"`
	ScopeID      string    `json:"scope_id"`
	Amount       int64     `json:"amount"`
	PotSize      int64     `json:"pot_size"`
	PotRemaining int64     `json:"pot_remaining"`
	Unlimited    bool      `json:"unlimited"`
	Marker       string    `json:"marker"`
	EndsAt       time.Time `json:"ends_at,omitzero"`
}

// MessageHandle identifies a published announcement. Its ID is the anchor
// that triggers are matched against.
type MessageHandle struct {
	ID      string
	Channel string
}

// Announcer renders event announcements to participants.
type Announcer interface {
	Publish(ctx context.Context, scopeID string, content Announcement) (MessageHandle, error)
	Update(ctx context.Context, handle MessageHandle, content Announcement) error
	Retract(ctx context.Context, handle MessageHandle) error
}
