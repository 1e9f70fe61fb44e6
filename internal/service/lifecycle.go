package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/event"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
)

// PresencePublisher exports presence transitions to the bus. Implementations
// must be safe to call from concurrent connection handlers.
type PresencePublisher interface {
	PublishPresence(ctx context.Context, ev *event.Presence) error
}

// Lifecycler reacts to transport connection events: open, inbound message,
// close, error. It is the only mutator of the connection registry.
type Lifecycler interface {
	// OnOpen registers a fresh connector for the claimed username and emits the
	// welcome, presence announcement, and roster update.
	OnOpen(ctx context.Context, username string) (registry.Connector, error)
	OnMessage(username string, raw []byte)
	// OnClose unregisters the connection and refreshes the roster for everyone
	// still online. Safe to call exactly once per connection.
	OnClose(username string, conn registry.Connector)
	// OnError only logs; registry mutation is deferred to the close transition.
	OnError(username string, err error)
}

// Interface guard
var _ Lifecycler = (*SessionService)(nil)

type SessionService struct {
	logger    *slog.Logger
	hub       registry.Hubber
	deliverer Deliverer
	router    Dispatcher
	presence  PresencePublisher

	mailboxSize int
}

func NewSessionService(logger *slog.Logger, hub registry.Hubber, deliverer Deliverer, router Dispatcher, presence PresencePublisher, cfg *config.Config) *SessionService {
	return &SessionService{
		logger:      logger,
		hub:         hub,
		deliverer:   deliverer,
		router:      router,
		presence:    presence,
		mailboxSize: cfg.Relay.MailboxSize,
	}
}

func (s *SessionService) OnOpen(ctx context.Context, username string) (registry.Connector, error) {
	conn := registry.NewConnector(ctx, username, s.mailboxSize)

	// Last write wins: a second connection under an in-use username replaces
	// the registry entry without evicting the prior transport. The superseded
	// handle keeps its socket until its own close notification arrives.
	if prev, replaced := s.hub.Register(conn); replaced {
		s.logger.Warn("username re-registered, previous connection left dangling",
			"username", username, "prev_conn_id", prev.GetID())
	}

	count := s.hub.Size()
	s.logger.Info("client connected", "username", username, "online", count)

	s.deliverer.SendOne(wire.SourceServer, username, "welcome, "+username, wire.TypeText)
	s.deliverer.Broadcast(wire.SourceServer,
		fmt.Sprintf("user %s is online, current online: %d", username, count), wire.TypeConsole)
	s.deliverer.Broadcast(wire.SourceServer, s.roster(username), wire.TypeRoster)

	s.publishPresence(ctx, username, true, count)
	return conn, nil
}

func (s *SessionService) OnMessage(username string, raw []byte) {
	in, err := wire.DecodeInbound(raw)
	if err != nil {
		s.logger.Info("malformed message", "username", username, "error", err)
		s.deliverer.SendOne(wire.SourceServer, username, "non-JSON format error message", wire.TypeError)
		return
	}

	s.logger.Debug("message received", "username", username, "type", in.Type)
	s.router.Route(username, in)
}

func (s *SessionService) OnClose(username string, conn registry.Connector) {
	conn.Close()
	s.hub.Unregister(username)

	count := s.hub.Size()
	s.logger.Info("client disconnected", "username", username, "online", count,
		"dropped_envelopes", conn.Dropped())

	s.deliverer.Broadcast(wire.SourceServer, s.roster(username), wire.TypeRoster)
	s.publishPresence(context.Background(), username, false, count)
}

func (s *SessionService) OnError(username string, err error) {
	s.logger.Error("connection error", "username", username, "error", err)
}

// roster renders the update_user payload: everyone online except the excluded
// username (the arrival or the departed, depending on the transition).
func (s *SessionService) roster(exclude string) string {
	snapshot := s.hub.Snapshot()
	usernames := snapshot[:0]
	for _, username := range snapshot {
		if username != exclude {
			usernames = append(usernames, username)
		}
	}
	return wire.RosterContent(usernames)
}

func (s *SessionService) publishPresence(ctx context.Context, username string, online bool, count int) {
	if err := s.presence.PublishPresence(ctx, event.NewPresence(username, online, count)); err != nil {
		s.logger.Warn("presence publish failed", "username", username, "error", err)
	}
}
