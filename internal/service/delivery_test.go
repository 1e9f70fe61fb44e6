package service

import (
	"testing"

	"github.com/webitel/im-relay-service/internal/domain/wire"
)

func TestSendOneDelivered(t *testing.T) {
	f := newFixture(t)
	bob := f.connect("bob")

	if !f.deliverer.SendOne("alice", "bob", "hi", wire.TypeSideText) {
		t.Fatal("SendOne failed against a registered target")
	}

	delivered, dropped, failed := f.journal.Counters()
	if delivered != 1 || dropped != 0 || failed != 0 {
		t.Errorf("Invalid counters: delivered=%d dropped=%d failed=%d", delivered, dropped, failed)
	}
	if n := len(bob.received()); n != 1 {
		t.Errorf("Invalid delivery count: expected 1 but got %d", n)
	}
}

func TestSendOneAbsentTarget(t *testing.T) {
	f := newFixture(t)

	if f.deliverer.SendOne("alice", "ghost", "hi", wire.TypeSideText) {
		t.Error("SendOne reported success against an absent target")
	}

	_, dropped, _ := f.journal.Counters()
	if dropped != 1 {
		t.Errorf("Invalid dropped count: expected 1 but got %d", dropped)
	}
	recs := f.journal.RecentFailures()
	if len(recs) != 1 {
		t.Fatalf("Invalid journal length: expected 1 but got %d", len(recs))
	}
	if recs[0].Target != "ghost" || recs[0].Kind != "target_not_found" {
		t.Errorf("Invalid failure record: %+v", recs[0])
	}
}

func TestSendOneTransportFailure(t *testing.T) {
	f := newFixture(t)
	bob := f.connect("bob")
	bob.failSend = true

	if f.deliverer.SendOne("alice", "bob", "hi", wire.TypeSideText) {
		t.Error("SendOne reported success after a transport failure")
	}

	_, _, failed := f.journal.Counters()
	if failed != 1 {
		t.Errorf("Invalid failed count: expected 1 but got %d", failed)
	}
	// A failed send never unregisters; cleanup belongs to the close transition.
	if _, ok := f.hub.Lookup("bob"); !ok {
		t.Error("failed send evicted the connection from the registry")
	}
	recs := f.journal.RecentFailures()
	if len(recs) != 1 || recs[0].Kind != "send_failed" {
		t.Errorf("Invalid failure journal: %+v", recs)
	}
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	f := newFixture(t)
	conns := []*fakeConn{f.connect("alice"), f.connect("bob"), f.connect("carol")}

	f.deliverer.Broadcast(wire.SourceServer, "hello all", wire.TypeText)

	seen := make(map[*wire.Envelope]bool)
	for _, conn := range conns {
		got := conn.received()
		if len(got) != 1 {
			t.Fatalf("Invalid delivery count for %s: expected 1 but got %d", conn.GetUsername(), len(got))
		}
		if got[0].Content != "hello all" || got[0].Source != wire.SourceServer {
			t.Errorf("Invalid broadcast envelope for %s: %+v", conn.GetUsername(), got[0])
		}
		// Every recipient gets its own envelope instance.
		if seen[got[0]] {
			t.Error("broadcast shared an envelope across recipients")
		}
		seen[got[0]] = true
	}

	delivered, _, _ := f.journal.Counters()
	if want := uint64(3); delivered != want {
		t.Errorf("Invalid delivered count: expected %d but got %d", want, delivered)
	}
}

func TestBroadcastToleratesFailures(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("alice")
	bob := f.connect("bob")
	bob.failSend = true

	f.deliverer.Broadcast(wire.SourceServer, "hello all", wire.TypeText)

	if n := len(alice.received()); n != 1 {
		t.Errorf("healthy recipient missed the broadcast: got %d envelopes", n)
	}
	delivered, _, failed := f.journal.Counters()
	if delivered != 1 || failed != 1 {
		t.Errorf("Invalid counters: delivered=%d failed=%d", delivered, failed)
	}
}
