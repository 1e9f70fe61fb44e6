package service

import (
	"log/slog"
	"time"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
	"golang.org/x/sync/errgroup"
)

// Deliverer pushes envelopes to registered connections. All delivery is
// best-effort and synchronous: an attempt completes or fails, failures are
// logged and observed, and nothing is retried.
type Deliverer interface {
	// SendOne delivers a freshly constructed envelope to target. An absent
	// target or a transport failure is swallowed after logging; the sender is
	// never notified. Reports whether the envelope was accepted.
	SendOne(source, target, content, msgType string) bool
	// SendGroup delivers to every member of the group whose name differs from
	// source. Membership of the source itself is not checked.
	SendGroup(source, groupID, content, msgType string)
	// Broadcast delivers to every registered connection over a point-in-time
	// snapshot of the registry.
	Broadcast(source, content, msgType string)
}

// Interface guard
var _ Deliverer = (*DeliveryService)(nil)

type DeliveryService struct {
	logger   *slog.Logger
	hub      registry.Hubber
	groups   registry.Grouper
	observer DeliveryObserver

	sendTimeout time.Duration
	fanout      int
}

func NewDeliveryService(logger *slog.Logger, hub registry.Hubber, groups registry.Grouper, observer DeliveryObserver, cfg *config.Config) *DeliveryService {
	return &DeliveryService{
		logger:      logger,
		hub:         hub,
		groups:      groups,
		observer:    observer,
		sendTimeout: cfg.Relay.SendTimeout,
		fanout:      cfg.Relay.BroadcastWorkers,
	}
}

func (s *DeliveryService) SendOne(source, target, content, msgType string) bool {
	conn, ok := s.hub.Lookup(target)
	if !ok {
		s.logger.Info("target not connected, dropping envelope", "target", target, "type", msgType)
		s.observer.Dropped(target, msgType)
		return false
	}

	// One envelope per recipient; never shared across consumers.
	env := &wire.Envelope{Source: source, Content: content, Type: msgType}
	if !conn.Send(env, s.sendTimeout) {
		// The close callback owns registry cleanup; a failed send does not
		// unregister the connection.
		s.logger.Warn("delivery failed", "target", target, "type", msgType, "conn_id", conn.GetID())
		s.observer.Failed(target, msgType)
		return false
	}

	s.observer.Delivered(target, msgType)
	return true
}

func (s *DeliveryService) SendGroup(source, groupID, content, msgType string) {
	members := s.groups.MembersOf(groupID)
	if len(members) == 0 {
		s.logger.Info("group unknown or empty, dropping envelope", "group_id", groupID)
		return
	}

	for _, member := range members {
		// Exclusion is by identity equality with the sender, not by the sender's
		// own membership.
		if member == source {
			continue
		}
		s.SendOne(source, member, content, msgType)
	}
}

func (s *DeliveryService) Broadcast(source, content, msgType string) {
	g := new(errgroup.Group)
	g.SetLimit(s.fanout)

	for _, username := range s.hub.Snapshot() {
		username := username
		g.Go(func() error {
			s.SendOne(source, username, content, msgType)
			return nil
		})
	}

	// Individual failures were already logged and observed.
	_ = g.Wait()
}
