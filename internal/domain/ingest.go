package domain

import "time"

// ReactionAdded is the wire form of a reaction notification as delivered by
// the chat bridge.
type ReactionAdded struct {
	AnchorID         string     `json:"anchor_id"`
	UserID           string     `json:"user_id"`
	IsBot            bool       `json:"is_bot"`
	AccountCreatedAt time.Time  `json:"account_created_at"`
	JoinedAt         *time.Time `json:"joined_at,omitempty"`
	Emote            string     `json:"emote"`
}

func (r ReactionAdded) Validate() error {
	if r.AnchorID == "" {
		return ErrInvalidNotification
	}
	return nil
}

// Trigger converts the notification, measuring ages against now. An unset
// account creation time yields a zero account age.
func (r ReactionAdded) Trigger(now time.Time, marker string) Trigger {
	t := Trigger{
		AnchorID:       r.AnchorID,
		ActorID:        r.UserID,
		ActorIsService: r.IsBot,
		MarkerMatches:  r.Emote != "" && r.Emote == marker,
	}
	if !r.AccountCreatedAt.IsZero() {
		t.AccountAge = now.Sub(r.AccountCreatedAt)
	}
	if r.JoinedAt != nil {
		age := now.Sub(*r.JoinedAt)
		t.MembershipAge = &age
	}
	return t
}

// MessageDeleted reports that a message, possibly an event anchor, is gone.
type MessageDeleted struct {
	MessageID string `json:"message_id"`
}

func (m MessageDeleted) Validate() error {
	if m.MessageID == "" {
		return ErrInvalidNotification
	}
	return nil
}
