package service

import (
	"fmt"
	"log/slog"

	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
)

// Dispatcher routes one parsed inbound envelope on behalf of a sender.
type Dispatcher interface {
	Route(sender string, in *wire.Inbound)
}

// Interface guard
var _ Dispatcher = (*MessageRouter)(nil)

// MessageRouter owns the dispatch table keyed by the inbound type tag. Every
// failure path answers the sender with an error-tagged envelope and affects
// nobody else; nothing here is fatal to the process.
type MessageRouter struct {
	logger    *slog.Logger
	hub       registry.Hubber
	groups    registry.Grouper
	deliverer Deliverer
	auther    Auther

	handlers map[string]func(sender string, in *wire.Inbound)
}

func NewMessageRouter(logger *slog.Logger, hub registry.Hubber, groups registry.Grouper, deliverer Deliverer, auther Auther) *MessageRouter {
	r := &MessageRouter{
		logger:    logger,
		hub:       hub,
		groups:    groups,
		deliverer: deliverer,
		auther:    auther,
	}
	r.handlers = map[string]func(sender string, in *wire.Inbound){
		wire.TypeAddGroup:     r.addGroup,
		wire.TypeSideText:     r.sideText,
		wire.TypeGroupText:    r.groupText,
		wire.TypeExile:        r.exile,
		wire.TypeGroupInfoReq: r.groupInfo,
	}
	return r
}

func (r *MessageRouter) Route(sender string, in *wire.Inbound) {
	if in.Type == "" {
		r.logger.Info("untyped message", "sender", sender)
		r.deliverer.SendOne(wire.SourceServer, sender, "untyped error message", wire.TypeError)
		return
	}

	handler, known := r.handlers[in.Type]
	if in.Type == wire.TypeExile && !r.auther.Authorize(sender, ActionExile) {
		// Unauthorized exile is silently downgraded to unknown-type handling; the
		// caller gets no distinct signal.
		known = false
	}
	if !known {
		r.logger.Info("unknown message type", "sender", sender, "type", in.Type)
		r.deliverer.SendOne(wire.SourceServer, sender, "unknown type error message", wire.TypeError)
		return
	}

	handler(sender, in)
}

func (r *MessageRouter) addGroup(sender string, in *wire.Inbound) {
	n := r.groups.Join(in.GroupID, sender)
	r.logger.Info("user joined group", "username", sender, "group_id", in.GroupID, "members", n)
	r.deliverer.SendOne(wire.SourceServer, sender,
		fmt.Sprintf("joined group %s, current size:%d", in.GroupID, n), wire.TypeText)
}

func (r *MessageRouter) sideText(sender string, in *wire.Inbound) {
	r.deliverer.SendOne(sender, in.Target, in.Content, in.Type)
}

func (r *MessageRouter) groupText(sender string, in *wire.Inbound) {
	r.deliverer.SendGroup(sender, in.GroupID, in.Content, in.Type)
}

func (r *MessageRouter) exile(sender string, in *wire.Inbound) {
	r.logger.Info("exiling user", "target", in.Target, "by", sender)
	// Farewell first so it is queued ahead of the shutdown; the transport pump
	// drains it before observing the close.
	r.deliverer.SendOne(wire.SourceServer, in.Target, "you have been removed from the chat", wire.TypeExit)
	if conn, ok := r.hub.Lookup(in.Target); ok {
		conn.Close()
	}
}

func (r *MessageRouter) groupInfo(sender string, in *wire.Inbound) {
	members := r.groups.MembersOf(in.GroupID)
	r.deliverer.SendOne(wire.SourceServer, sender, wire.GroupInfoContent(members), wire.TypeGroupInfo)
}
