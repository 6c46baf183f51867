package signal

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"testing"
	"time"

	"meetsignal/internal/app/meeting"
	"meetsignal/internal/pkg/auth/jwt"
)

// recorder is a Peer that keeps everything it is sent.
type recorder struct {
	id string

	mu     sync.Mutex
	msgs   []Outbound
	closed bool
}

func newRecorder(id string) *recorder {
	return &recorder{id: id}
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(msg Outbound) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.msgs = append(r.msgs, msg)
	return true
}

func (r *recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// take returns and clears the recorded messages.
func (r *recorder) take() []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.msgs
	r.msgs = nil
	return out
}

func only(msgs []Outbound, event EventName) []Outbound {
	var out []Outbound
	for _, m := range msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func rosterOf(t *testing.T, msg Outbound) []string {
	t.Helper()

	entries, ok := msg.Data.([]RosterEntry)
	if !ok {
		t.Fatalf("participants-updated data has type %T", msg.Data)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// lastRoster asserts exactly one roster broadcast in msgs and returns its ids.
func lastRoster(t *testing.T, msgs []Outbound) []string {
	t.Helper()

	rosters := only(msgs, EventParticipantsUpdated)
	if len(rosters) != 1 {
		t.Fatalf("got %d roster broadcasts, want 1", len(rosters))
	}
	return rosterOf(t, rosters[0])
}

func newTestHub(t *testing.T, dir meeting.Directory) *Hub {
	t.Helper()
	return NewHub(NewRegistry(), Config{Directory: dir})
}

func connect(h *Hub, id string, identity *jwt.Payload) *recorder {
	p := newRecorder(id)
	h.Connect(p, identity, "")
	p.take()
	return p
}

func join(h *Hub, channelID, roomID, participantID string) {
	h.Dispatch(context.Background(), channelID, Inbound{Event: EventJoinRoom, RoomID: roomID, ParticipantID: participantID})
}

func TestConnectSendsWelcome(t *testing.T) {
	h := newTestHub(t, nil)
	p := newRecorder("c1")

	h.Connect(p, &jwt.Payload{UserID: "u1", Name: "Uma"}, "")

	msgs := p.take()
	if len(msgs) != 1 || msgs[0].Event != EventWelcome {
		t.Fatalf("messages = %+v, want one welcome", msgs)
	}
	w := msgs[0].Data.(Welcome)
	if w.ChannelID != "c1" || w.UserID != "u1" || w.Name != "Uma" {
		t.Fatalf("welcome = %+v", w)
	}
	if h.ChannelCount() != 1 {
		t.Fatalf("channel count = %d", h.ChannelCount())
	}
}

func TestJoinOfferDisconnectFlow(t *testing.T) {
	h := newTestHub(t, nil)

	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	b := connect(h, "chB", nil)
	c := connect(h, "chC", nil)

	join(h, "chA", "r1", "u1")
	if got := lastRoster(t, a.take()); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("A roster after first join = %v", got)
	}

	h.sessions["chB"].guestName = "Bob"
	join(h, "chB", "r1", "guest-17000")

	aMsgs, bMsgs := a.take(), b.take()
	for name, msgs := range map[string][]Outbound{"A": aMsgs, "B": bMsgs} {
		if got := lastRoster(t, msgs); !slices.Equal(got, []string{"u1", "guest-17000"}) {
			t.Fatalf("%s roster = %v", name, got)
		}
	}
	if joined := only(aMsgs, EventUserJoined); len(joined) != 1 || joined[0].Data != "guest-17000" {
		t.Fatalf("A user-joined = %+v", joined)
	}
	if len(only(bMsgs, EventUserJoined)) != 0 {
		t.Fatal("joining channel must not get its own user-joined")
	}
	if entry, _ := h.Registry().Lookup("r1", "guest-17000"); entry.Name != "Bob" || !entry.IsGuest() {
		t.Fatalf("guest entry = %+v", entry)
	}

	join(h, "chC", "r1", "guest-3")
	a.take()
	b.take()
	c.take()

	offer := json.RawMessage(`{"sdp":"v=0"}`)
	h.Dispatch(context.Background(), "chA", Inbound{Event: EventOffer, RoomID: "r1", Target: "chB", Payload: offer})

	got := b.take()
	if len(got) != 1 || got[0].Event != EventOffer || got[0].From != "chA" {
		t.Fatalf("B messages = %+v", got)
	}
	if string(got[0].Data.(json.RawMessage)) != string(offer) {
		t.Fatalf("offer payload altered: %s", got[0].Data)
	}
	if n := len(c.take()) + len(a.take()); n != 0 {
		t.Fatalf("targeted offer leaked to %d other messages", n)
	}

	h.Disconnect("chB")

	aMsgs = a.take()
	if got := lastRoster(t, aMsgs); !slices.Equal(got, []string{"u1", "guest-3"}) {
		t.Fatalf("A roster after disconnect = %v", got)
	}
	if left := only(aMsgs, EventUserLeft); len(left) != 1 || left[0].Data != "guest-17000" {
		t.Fatalf("A user-left = %+v", left)
	}
	if len(b.take()) != 0 {
		t.Fatal("disconnected channel received messages")
	}

	h.Disconnect("chB")
	if len(a.take()) != 0 {
		t.Fatal("second disconnect must be a no-op")
	}
}

func TestDuplicateJoinRebroadcastsSameRoster(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})

	join(h, "chA", "r1", "u1")
	a.take()

	join(h, "chA", "r1", "u1")
	msgs := a.take()
	if got := lastRoster(t, msgs); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("roster = %v", got)
	}
	if len(only(msgs, EventUserJoined)) != 0 {
		t.Fatal("duplicate join announced a new participant")
	}
}

func TestLeaveAbsentStillBroadcasts(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	z := connect(h, "chZ", nil)

	join(h, "chA", "r1", "u1")
	a.take()

	h.Dispatch(context.Background(), "chZ", Inbound{Event: EventLeaveRoom, RoomID: "r1", ParticipantID: "nobody"})

	if got := lastRoster(t, a.take()); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("member roster = %v", got)
	}
	if got := lastRoster(t, z.take()); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("actor roster = %v", got)
	}
}

func TestLeaveGivesActorFinalRoster(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})

	join(h, "chA", "r1", "u1")
	a.take()

	h.Dispatch(context.Background(), "chA", Inbound{Event: EventLeaveRoom, RoomID: "r1", ParticipantID: "u1"})

	if got := lastRoster(t, a.take()); len(got) != 0 {
		t.Fatalf("roster after last leave = %v, want empty", got)
	}
	if !h.Registry().Exists("r1") {
		t.Fatal("empty room should persist after the last leave")
	}
}

func TestForeignChannelCannotEvict(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", nil)
	connect(h, "chM", nil)

	join(h, "chA", "r1", "guest-a")
	join(h, "chM", "r1", "guest-a")
	h.Dispatch(context.Background(), "chM", Inbound{Event: EventLeaveRoom, RoomID: "r1", ParticipantID: "guest-a"})
	h.Disconnect("chM")

	if _, ok := h.Registry().Lookup("r1", "guest-a"); !ok {
		t.Fatal("participant evicted by a channel that does not back it")
	}
	a.take()
}

func TestAnonymousJoinAsUserLeavesRosterAlone(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	c := connect(h, "chC", nil)

	join(h, "chA", "r1", "u1")
	a.take()

	join(h, "chC", "r1", "u1")

	if got := lastRoster(t, c.take()); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("C roster = %v, want [u1]", got)
	}
	if got := a.take(); len(got) != 0 {
		t.Fatalf("A received %+v for a join that changed nothing", got)
	}
	if entry, _ := h.Registry().Lookup("r1", "u1"); entry.ChannelID != "chA" || entry.IsGuest() {
		t.Fatalf("u1 entry = %+v", entry)
	}
	if _, bound := h.Registry().Binding("chC"); bound {
		t.Fatal("refused channel was subscribed to the room")
	}
}

func TestAuthenticatedJoinUsesTokenUser(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})

	join(h, "chA", "r1", "u2")

	if got := lastRoster(t, a.take()); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("roster = %v, want [u1]", got)
	}
}

func TestJoinWithoutRoomIsIgnored(t *testing.T) {
	h := newTestHub(t, nil)
	g := connect(h, "chG", nil)

	join(h, "chG", "", "guest-1")

	if len(g.take()) != 0 || h.Registry().RoomCount() != 0 {
		t.Fatal("join without a room touched the registry")
	}
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	b := connect(h, "chB", &jwt.Payload{UserID: "u2"})

	join(h, "chA", "r1", "u1")
	join(h, "chB", "r1", "u2")
	a.take()
	b.take()

	join(h, "chA", "r2", "u1")

	if got := lastRoster(t, b.take()); !slices.Equal(got, []string{"u2"}) {
		t.Fatalf("r1 roster = %v", got)
	}
	if got := rosterIDs(h.Registry().RosterOf("r2")); !slices.Equal(got, []string{"u1"}) {
		t.Fatalf("r2 roster = %v", got)
	}
}

func TestUntargetedHandshakeGoesToRestOfRoom(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	b := connect(h, "chB", &jwt.Payload{UserID: "u2"})

	join(h, "chA", "r1", "u1")
	join(h, "chB", "r1", "u2")
	a.take()
	b.take()

	h.Dispatch(context.Background(), "chA", Inbound{Event: EventICECandidate, RoomID: "r1", Payload: json.RawMessage(`{}`)})

	if got := b.take(); len(got) != 1 || got[0].Event != EventICECandidate || got[0].From != "chA" {
		t.Fatalf("B messages = %+v", got)
	}
	if len(a.take()) != 0 {
		t.Fatal("sender received its own handshake")
	}

	h.Dispatch(context.Background(), "chA", Inbound{Event: EventAnswer, Target: "gone"})
	if len(a.take())+len(b.take()) != 0 {
		t.Fatal("handshake for a vanished target was delivered somewhere")
	}
}

func TestChatReachesWholeRoom(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})
	b := connect(h, "chB", &jwt.Payload{UserID: "u2"})

	join(h, "chA", "r1", "u1")
	join(h, "chB", "r1", "u2")
	a.take()
	b.take()

	h.Dispatch(context.Background(), "chA", Inbound{Event: EventChatMessage, RoomID: "r1", Payload: json.RawMessage(`{"text":"hi"}`)})

	for name, p := range map[string]*recorder{"A": a, "B": b} {
		if got := p.take(); len(got) != 1 || got[0].Event != EventChatMessage || got[0].From != "chA" {
			t.Fatalf("%s messages = %+v", name, got)
		}
	}
}

func TestNameChangeRenamesOwnEntry(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", nil)
	b := connect(h, "chB", nil)

	join(h, "chA", "r1", "guest-a")
	join(h, "chB", "r1", "guest-b")
	a.take()
	b.take()

	h.Dispatch(context.Background(), "chA", Inbound{
		Event:   EventNameChange,
		RoomID:  "r1",
		Payload: json.RawMessage(`{"userId":"guest-a","newName":"Ada"}`),
	})

	if p, _ := h.Registry().Lookup("r1", "guest-a"); p.Name != "Ada" {
		t.Fatalf("name = %q, want Ada", p.Name)
	}
	bMsgs := b.take()
	if len(only(bMsgs, EventNameChange)) != 1 || len(only(bMsgs, EventParticipantsUpdated)) != 1 {
		t.Fatalf("B messages = %+v", bMsgs)
	}
	if len(only(a.take(), EventNameChange)) != 0 {
		t.Fatal("sender received its own name-change")
	}

	h.Dispatch(context.Background(), "chB", Inbound{
		Event:   EventNameChange,
		RoomID:  "r1",
		Payload: json.RawMessage(`{"userId":"guest-a","newName":"Mallory"}`),
	})
	if p, _ := h.Registry().Lookup("r1", "guest-a"); p.Name != "Ada" {
		t.Fatalf("foreign rename applied: %q", p.Name)
	}
}

func TestGuestJoinedResolvesMeetingRoom(t *testing.T) {
	dir := meeting.NewMemoryDirectory(meeting.Meeting{ID: "m1", Status: meeting.StatusActive, RoomID: "room-9"})
	h := newTestHub(t, dir)

	host := connect(h, "chH", &jwt.Payload{UserID: "host"})
	g := connect(h, "chG", nil)

	join(h, "chH", "room-9", "host")
	host.take()

	h.Dispatch(context.Background(), "chG", Inbound{
		Event:   EventGuestJoined,
		Payload: json.RawMessage(`{"meetingId":"m1","guestInfo":{"name":"  Gail  ","tempId":"guest-42"}}`),
	})

	entry, ok := h.Registry().Lookup("room-9", "guest-42")
	if !ok || entry.Name != "Gail" || !entry.IsGuest() {
		t.Fatalf("guest entry = %+v ok=%v", entry, ok)
	}

	hostMsgs := host.take()
	if got := lastRoster(t, hostMsgs); !slices.Equal(got, []string{"host", "guest-42"}) {
		t.Fatalf("host roster = %v", got)
	}
	joined := only(hostMsgs, EventGuestJoined)
	if len(joined) != 1 {
		t.Fatalf("host guest-joined = %+v", joined)
	}
	if info := joined[0].Data.(GuestInfo); info.TempID != "guest-42" || info.Name != "Gail" || !info.IsGuest {
		t.Fatalf("guest info = %+v", info)
	}
	if len(only(g.take(), EventGuestJoined)) != 0 {
		t.Fatal("guest received its own guest-joined")
	}

	h.Dispatch(context.Background(), "chG", Inbound{
		Event:   EventGuestLeft,
		Payload: json.RawMessage(`{"meetingId":"m1","guestInfo":{"tempId":"guest-42"}}`),
	})

	if _, ok := h.Registry().Lookup("room-9", "guest-42"); ok {
		t.Fatal("guest still present after guest-left")
	}
	if left := only(host.take(), EventGuestLeft); len(left) != 1 {
		t.Fatalf("host guest-left = %+v", left)
	}
}

func TestGuestLeftForForeignGuestIsNotRelayed(t *testing.T) {
	dir := meeting.NewMemoryDirectory(meeting.Meeting{ID: "m1", Status: meeting.StatusActive, RoomID: "room-1"})
	h := newTestHub(t, dir)

	host := connect(h, "chH", &jwt.Payload{UserID: "host"})
	connect(h, "chG", nil)
	connect(h, "chM", nil)

	join(h, "chH", "room-1", "host")
	h.Dispatch(context.Background(), "chG", Inbound{
		Event:   EventGuestJoined,
		Payload: json.RawMessage(`{"meetingId":"m1","guestInfo":{"name":"Gail","tempId":"guest-42"}}`),
	})
	host.take()

	h.Dispatch(context.Background(), "chM", Inbound{
		Event:   EventGuestLeft,
		Payload: json.RawMessage(`{"meetingId":"m1","guestInfo":{"tempId":"guest-42"}}`),
	})

	if _, ok := h.Registry().Lookup("room-1", "guest-42"); !ok {
		t.Fatal("guest evicted by a channel that does not back it")
	}
	if left := only(host.take(), EventGuestLeft); len(left) != 0 {
		t.Fatalf("host got guest-left for a guest still present: %+v", left)
	}
}

func TestGuestJoinedFallsBackToMeetingID(t *testing.T) {
	h := newTestHub(t, meeting.NewMemoryDirectory())
	connect(h, "chG", nil)

	h.Dispatch(context.Background(), "chG", Inbound{
		Event:   EventGuestJoined,
		Payload: json.RawMessage(`{"meetingId":"m-unknown","guestInfo":{"name":"Gus"}}`),
	})

	roster := h.Registry().RosterOf("m-unknown")
	if len(roster) != 1 || !roster[0].IsGuest() || roster[0].Name != "Gus" {
		t.Fatalf("roster = %+v", roster)
	}
}

func TestGuestEventsIgnoredFromAuthenticatedChannel(t *testing.T) {
	h := newTestHub(t, nil)
	connect(h, "chA", &jwt.Payload{UserID: "u1"})

	h.Dispatch(context.Background(), "chA", Inbound{
		Event:   EventGuestJoined,
		Payload: json.RawMessage(`{"meetingId":"m1","guestInfo":{"tempId":"guest-1"}}`),
	})

	if h.Registry().Exists("m1") {
		t.Fatal("authenticated channel registered a guest")
	}
}

func TestUnknownChannelIsIgnored(t *testing.T) {
	h := newTestHub(t, nil)

	join(h, "ghost", "r1", "guest-1")
	h.Disconnect("ghost")

	if h.Registry().Exists("r1") {
		t.Fatal("unknown channel joined a room")
	}
}

func TestShutdownClosesPeers(t *testing.T) {
	h := newTestHub(t, nil)
	a := connect(h, "chA", nil)
	b := connect(h, "chB", nil)

	h.Shutdown()

	if !a.closed || !b.closed {
		t.Fatal("shutdown left peers open")
	}
}

func TestRunSweepsEmptyRooms(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	h := NewHub(registry, Config{EmptyRoomTTL: time.Minute})
	a := connect(h, "chA", &jwt.Payload{UserID: "u1"})

	join(h, "chA", "r1", "u1")
	h.Dispatch(context.Background(), "chA", Inbound{Event: EventLeaveRoom, RoomID: "r1", ParticipantID: "u1"})
	a.take()

	now = now.Add(2 * time.Minute)
	h.sweep()

	if registry.Exists("r1") {
		t.Fatal("sweep kept an expired empty room")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
