package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/centrifugal/centrifuge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) (*centrifuge.Node, *metrics.AnnouncementMetrics) {
	t.Helper()
	m := metrics.NewAnnouncementMetrics(prometheus.NewRegistry())
	node, err := NewNode(m, "error")
	require.NoError(t, err)
	require.NoError(t, node.Run())
	t.Cleanup(func() { _ = node.Shutdown(context.Background()) })
	return node, m
}

func history(t *testing.T, node *centrifuge.Node, channel string) []announcementMessage {
	t.Helper()
	res, err := node.History(channel, centrifuge.WithLimit(centrifuge.NoLimit))
	require.NoError(t, err)

	msgs := make([]announcementMessage, 0, len(res.Publications))
	for _, pub := range res.Publications {
		var msg announcementMessage
		require.NoError(t, json.Unmarshal(pub.Data, &msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestAnnouncer_Lifecycle(t *testing.T) {
	node, m := newTestNode(t)
	announcer := NewAnnouncer(node, m)
	ctx := context.Background()

	handle, err := announcer.Publish(ctx, "guild-1", domain.Announcement{Kind: domain.AnnouncementKindReaction, Amount: 30, PotSize: 100, PotRemaining: 100, Marker: "🌸"})
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, "events:guild-1", handle.Channel)

	require.NoError(t, announcer.Update(ctx, handle, domain.Announcement{Kind: domain.AnnouncementKindReaction, Amount: 30, PotSize: 100, PotRemaining: 40}))
	require.NoError(t, announcer.Retract(ctx, handle))

	msgs := history(t, node, handle.Channel)
	require.Len(t, msgs, 3)

	assert.Equal(t, ActionPublish, msgs[0].Action)
	require.NotNil(t, msgs[0].Announcement)
	assert.Equal(t, int64(100), msgs[0].Announcement.PotRemaining)
	assert.Equal(t, "🌸", msgs[0].Announcement.Marker)

	assert.Equal(t, ActionUpdate, msgs[1].Action)
	assert.Equal(t, int64(40), msgs[1].Announcement.PotRemaining)

	assert.Equal(t, ActionRetract, msgs[2].Action)
	assert.Nil(t, msgs[2].Announcement)

	for _, msg := range msgs {
		assert.Equal(t, handle.ID, msg.MessageID)
	}

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Published.WithLabelValues(ActionPublish)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Published.WithLabelValues(ActionRetract)), 0.001)
}

func TestAnnouncer_PublishUsesFreshIDs(t *testing.T) {
	node, _ := newTestNode(t)
	announcer := NewAnnouncer(node, nil)

	a, err := announcer.Publish(context.Background(), "guild-1", domain.Announcement{})
	require.NoError(t, err)
	b, err := announcer.Publish(context.Background(), "guild-1", domain.Announcement{})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestAnnouncer_CancelledContext(t *testing.T) {
	node, _ := newTestNode(t)
	announcer := NewAnnouncer(node, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := announcer.Publish(ctx, "guild-1", domain.Announcement{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnConnecting_SubscribesToScopeChannel(t *testing.T) {
	ctx := centrifuge.SetCredentials(context.Background(), &centrifuge.Credentials{Info: []byte("guild-1")})

	reply, err := onConnecting(ctx, centrifuge.ConnectEvent{})
	require.NoError(t, err)
	assert.Contains(t, reply.Subscriptions, "events:guild-1")
}

func TestOnConnecting_RejectsMissingScope(t *testing.T) {
	_, err := onConnecting(context.Background(), centrifuge.ConnectEvent{})
	require.Error(t, err)

	ctx := centrifuge.SetCredentials(context.Background(), &centrifuge.Credentials{Info: []byte("a:b")})
	_, err = onConnecting(ctx, centrifuge.ConnectEvent{})
	require.Error(t, err)
}
