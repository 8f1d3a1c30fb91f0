// Package websocket pushes event announcements to viewers over Centrifuge.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/centrifugal/centrifuge"
)

const channelPrefix = "events:"

// ChannelFor returns the announcement channel of a scope.
func ChannelFor(scopeID string) string {
	return channelPrefix + scopeID
}

// NewNode creates a node that subscribes every connection to the channel of
// the scope carried in its credentials.
func NewNode(annMetrics *metrics.AnnouncementMetrics, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting)
	node.OnConnect(onConnect(annMetrics))

	return node, nil
}

func onConnecting(ctx context.Context, _ centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	cred, ok := centrifuge.GetCredentials(ctx)
	if !ok {
		return centrifuge.ConnectReply{}, centrifuge.DisconnectServerError
	}

	scopeID := string(cred.Info)
	if scopeID == "" || strings.ContainsAny(scopeID, ":/ ") {
		slog.Warn("Rejected viewer connection with invalid scope", "scope_id", scopeID)
		return centrifuge.ConnectReply{}, centrifuge.DisconnectBadRequest
	}

	reply := centrifuge.ConnectReply{
		Subscriptions: map[string]centrifuge.SubscribeOptions{
			ChannelFor(scopeID): {
				EmitPresence:   true,
				EnableRecovery: true,
			},
		},
	}
	return reply, nil
}

func onConnect(annMetrics *metrics.AnnouncementMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Viewer connected", "client_id", client.ID())

		if annMetrics != nil {
			annMetrics.ActiveConnections.Inc()
		}

		// Viewers only ever receive the server-side subscription.
		client.OnSubscribe(func(_ centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Viewer disconnected", "client_id", client.ID(), "reason", e.Reason)
			if annMetrics != nil {
				annMetrics.ActiveConnections.Dec()
			}
		})
	}
}

// SetupRedis switches the node to a Redis broker so announcements reach
// viewers connected to any instance.
func SetupRedis(node *centrifuge.Node, redisAddr string) error {
	shardConfig := centrifuge.RedisShardConfig{Address: redisAddr}
	shard, err := centrifuge.NewRedisShard(node, shardConfig)
	if err != nil {
		return fmt.Errorf("create redis shard: %w", err)
	}

	brokerConfig := centrifuge.RedisBrokerConfig{Prefix: "economy", Shards: []*centrifuge.RedisShard{shard}}
	broker, err := centrifuge.NewRedisBroker(node, brokerConfig)
	if err != nil {
		return fmt.Errorf("create redis broker: %w", err)
	}
	node.SetBroker(broker)

	pmConfig := centrifuge.RedisPresenceManagerConfig{Prefix: "economy", Shards: []*centrifuge.RedisShard{shard}}
	presenceManager, err := centrifuge.NewRedisPresenceManager(node, pmConfig)
	if err != nil {
		return fmt.Errorf("create redis presence manager: %w", err)
	}
	node.SetPresenceManager(presenceManager)

	return nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug, centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}

// ViewerCount returns how many viewers watch a scope's announcements.
func ViewerCount(node *centrifuge.Node, scopeID string) int {
	stats, err := node.PresenceStats(ChannelFor(scopeID))
	if err != nil {
		return 0
	}
	return stats.NumClients
}
