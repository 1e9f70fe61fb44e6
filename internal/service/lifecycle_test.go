package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/domain/wire"
)

func newSessionFixture(t *testing.T) (*fixture, *SessionService, *fakePresence) {
	t.Helper()
	f := newFixture(t)
	presence := &fakePresence{}
	session := NewSessionService(slog.New(slog.NewTextHandler(io.Discard, nil)), f.hub, f.deliverer, f.router, presence, testConfig())
	return f, session, presence
}

// drain collects every envelope currently queued on a real connector.
func drain(conn registry.Connector) []*wire.Envelope {
	var out []*wire.Envelope
	for {
		select {
		case env := <-conn.Recv():
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestOnOpenAnnouncesArrival(t *testing.T) {
	f, session, presence := newSessionFixture(t)
	bob := f.connect("bob")

	conn, err := session.OnOpen(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Couldn't open a session: %+v", err)
	}

	if got, ok := f.hub.Lookup("alice"); !ok || got != conn {
		t.Fatal("registry does not hold the opened connection")
	}

	// The arrival gets the welcome first, then the two broadcasts.
	got := drain(conn)
	if len(got) != 3 {
		t.Fatalf("Invalid envelope count for the arrival: expected 3 but got %d", len(got))
	}
	if got[0].Type != wire.TypeText || got[0].Content != "welcome, alice" {
		t.Errorf("Invalid welcome: %+v", got[0])
	}
	if got[1].Type != wire.TypeConsole || got[1].Content != "user alice is online, current online: 2" {
		t.Errorf("Invalid console announcement: %+v", got[1])
	}
	if got[2].Type != wire.TypeRoster || got[2].Content != "bob" {
		t.Errorf("Invalid roster for the arrival: %+v", got[2])
	}

	// Bystanders see the console line and a roster that omits the arrival.
	bobGot := bob.received()
	if len(bobGot) != 2 {
		t.Fatalf("Invalid envelope count for a bystander: expected 2 but got %d", len(bobGot))
	}
	if bobGot[0].Type != wire.TypeConsole {
		t.Errorf("Invalid bystander console envelope: %+v", bobGot[0])
	}
	if bobGot[1].Type != wire.TypeRoster || bobGot[1].Content != "bob" {
		t.Errorf("Invalid bystander roster: %+v", bobGot[1])
	}

	events := presence.published()
	if len(events) != 1 {
		t.Fatalf("Invalid presence count: expected 1 but got %d", len(events))
	}
	if !events[0].Online || events[0].Username != "alice" || events[0].OnlineCount != 2 {
		t.Errorf("Invalid presence event: %+v", events[0])
	}
}

func TestOnOpenDuplicateUsernameReplacesSilently(t *testing.T) {
	f, session, _ := newSessionFixture(t)

	first, err := session.OnOpen(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Couldn't open the first session: %+v", err)
	}
	second, err := session.OnOpen(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Couldn't open the second session: %+v", err)
	}

	if got, ok := f.hub.Lookup("alice"); !ok || got != second {
		t.Error("registry does not hold the replacing connection")
	}
	if want, got := 1, f.hub.Size(); want != got {
		t.Errorf("Invalid registry size: expected %d but got %d", want, got)
	}
	// The superseded transport is left dangling, not evicted.
	select {
	case <-first.Done():
		t.Error("previous connection was closed by the replacement")
	default:
	}
}

func TestOnMessageRoutes(t *testing.T) {
	f, session, _ := newSessionFixture(t)
	bob := f.connect("bob")

	session.OnMessage("alice", []byte(`{"type":"side_txt","target":"bob","content":"hi"}`))

	got := bob.received()
	if len(got) != 1 {
		t.Fatalf("Invalid delivery count: expected 1 but got %d", len(got))
	}
	if got[0].Source != "alice" || got[0].Content != "hi" {
		t.Errorf("Invalid routed envelope: %+v", got[0])
	}
}

func TestOnMessageMalformed(t *testing.T) {
	f, session, _ := newSessionFixture(t)
	alice := f.connect("alice")

	session.OnMessage("alice", []byte("definitely not json"))

	got := alice.received()
	if len(got) != 1 {
		t.Fatalf("Invalid error count: expected 1 but got %d", len(got))
	}
	if got[0].Type != wire.TypeError || got[0].Content != "non-JSON format error message" {
		t.Errorf("Invalid error envelope: %+v", got[0])
	}
}

func TestOnCloseAnnouncesDeparture(t *testing.T) {
	f, session, presence := newSessionFixture(t)
	bob := f.connect("bob")

	conn, err := session.OnOpen(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Couldn't open a session: %+v", err)
	}
	openCount := len(bob.received())

	session.OnClose("alice", conn)

	if _, ok := f.hub.Lookup("alice"); ok {
		t.Error("closed connection still registered")
	}
	select {
	case <-conn.Done():
	default:
		t.Error("connection not closed on departure")
	}

	bobGot := bob.received()[openCount:]
	if len(bobGot) != 1 {
		t.Fatalf("Invalid departure envelope count: expected 1 but got %d", len(bobGot))
	}
	if bobGot[0].Type != wire.TypeRoster || bobGot[0].Content != "bob" {
		t.Errorf("Invalid departure roster: %+v", bobGot[0])
	}

	events := presence.published()
	if len(events) != 2 {
		t.Fatalf("Invalid presence count: expected 2 but got %d", len(events))
	}
	last := events[1]
	if last.Online || last.Username != "alice" || last.OnlineCount != 1 {
		t.Errorf("Invalid offline presence event: %+v", last)
	}
}
