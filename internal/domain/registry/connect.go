package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-relay-service/internal/domain/wire"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the handle the registry holds for a live connection. It decouples
// the delivery core from the concrete transport: the transport layer drains
// Recv and owns the underlying socket, the core only pushes envelopes in.
type Connector interface {
	GetID() uuid.UUID
	GetUsername() string
	// Send pushes one envelope toward the transport. It waits up to timeout on a
	// saturated mailbox and reports false on failure; it never blocks the caller
	// past that window and never panics.
	Send(env *wire.Envelope, timeout time.Duration) bool
	Recv() <-chan *wire.Envelope
	// Done is closed once the connection is shut down. Envelopes queued before
	// shutdown remain readable from Recv so the transport can drain them.
	Done() <-chan struct{}
	Close()
	// Dropped reports how many envelopes were discarded due to backpressure.
	Dropped() uint64
}

type connect struct {
	id        uuid.UUID
	username  string
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh chan *wire.Envelope

	closeOnce sync.Once
	dropped   atomic.Uint64
}

// NewConnector builds a connection handle with a mailbox of the given capacity.
func NewConnector(ctx context.Context, username string, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.New(),
		username:  username,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan *wire.Envelope, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID    { return c.id }
func (c *connect) GetUsername() string { return c.username }

func (c *connect) Send(env *wire.Envelope, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- env:
		return true
	case <-t.C:
		// Persistent slow consumer. Best-effort semantics: the envelope is shed,
		// the failure is the caller's to log.
		c.dropped.Add(1)
		return false
	}
}

func (c *connect) Recv() <-chan *wire.Envelope { return c.sendCh }

func (c *connect) Done() <-chan struct{} { return c.ctx.Done() }

// Close terminates the connection. The mailbox channel is deliberately left
// open: cancellation gates further sends, and anything already queued (such as
// an exile farewell) stays drainable by the transport pump.
func (c *connect) Close() {
	c.closeOnce.Do(c.cancelFn)
}

func (c *connect) Dropped() uint64 { return c.dropped.Load() }
