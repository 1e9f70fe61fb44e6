package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/event"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
)

// fakeConn captures everything delivered to it so routing decisions can be
// asserted without a real transport.
type fakeConn struct {
	id       uuid.UUID
	username string

	mu        sync.Mutex
	envelopes []*wire.Envelope
	failSend  bool
	closed    bool
	done      chan struct{}
}

func newFakeConn(username string) *fakeConn {
	return &fakeConn{
		id:       uuid.New(),
		username: username,
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) GetID() uuid.UUID    { return c.id }
func (c *fakeConn) GetUsername() string { return c.username }

func (c *fakeConn) Send(env *wire.Envelope, _ time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return false
	}
	c.envelopes = append(c.envelopes, env)
	return true
}

func (c *fakeConn) Recv() <-chan *wire.Envelope { return nil }
func (c *fakeConn) Done() <-chan struct{}       { return c.done }
func (c *fakeConn) Dropped() uint64             { return 0 }

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *fakeConn) received() []*wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*wire.Envelope, len(c.envelopes))
	copy(out, c.envelopes)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakePresence records published presence transitions.
type fakePresence struct {
	mu     sync.Mutex
	events []*event.Presence
}

func (p *fakePresence) PublishPresence(_ context.Context, ev *event.Presence) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePresence) published() []*event.Presence {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*event.Presence, len(p.events))
	copy(out, p.events)
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Listen:   ":0",
		LogLevel: "error",
		Relay: config.RelayConfig{
			AdminUser:          "ADMIN",
			MailboxSize:        16,
			SendTimeout:        50 * time.Millisecond,
			BroadcastWorkers:   4,
			FailureJournalSize: 16,
		},
	}
}

type fixture struct {
	hub       *registry.Hub
	groups    *registry.Groups
	journal   *DeliveryJournal
	deliverer *DeliveryService
	router    *MessageRouter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()

	journal, err := NewDeliveryJournal(cfg)
	if err != nil {
		t.Fatalf("Couldn't build the delivery journal: %+v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := registry.NewHub()
	groups := registry.NewGroups()
	deliverer := NewDeliveryService(logger, hub, groups, journal, cfg)
	router := NewMessageRouter(logger, hub, groups, deliverer, NewReservedIdentityAuth(cfg))

	return &fixture{
		hub:       hub,
		groups:    groups,
		journal:   journal,
		deliverer: deliverer,
		router:    router,
	}
}

// connect registers a fake connection under the given username.
func (f *fixture) connect(username string) *fakeConn {
	conn := newFakeConn(username)
	f.hub.Register(conn)
	return conn
}
