package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerMG2/card-games/engine"
	"github.com/TylerMG2/card-games/engine/wire"
)

type memJournal struct {
	entries []Entry
}

func (j *memJournal) Record(e Entry) { j.entries = append(j.entries, e) }

type memArchiver struct {
	mu   sync.Mutex
	seen []Summary
}

func (a *memArchiver) RecordRoomClosed(_ context.Context, s Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, s)
	return nil
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDirectory(t *testing.T, j Journal, a Archiver) *Directory {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewDirectory(Options{
		CodeLength: 4,
		Journal:    j,
		Archiver:   a,
		Log:        log,
		Seed:       func() uint64 { return 7 },
		Now:        func() time.Time { return epoch },
	})
}

// drain decodes everything queued in out.
func drain(t *testing.T, out *Outbox) []engine.ServerEvent {
	t.Helper()
	var evs []engine.ServerEvent
	for {
		select {
		case msg := <-out.C():
			ev, err := wire.DecodeServer(msg)
			require.NoError(t, err)
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func kinds(evs []engine.ServerEvent) []engine.ServerKind {
	ks := make([]engine.ServerKind, len(evs))
	for i, ev := range evs {
		ks[i] = ev.ServerKind()
	}
	return ks
}

func join(t *testing.T, d *Directory, code, name string) (uuid.UUID, uint8, *Outbox) {
	t.Helper()
	id := uuid.New()
	out := NewOutbox(64)
	adm, err := d.Join(code, id, out)
	require.NoError(t, err)
	require.False(t, adm.Existing)
	ok := d.Do(code, func(r *Room) {
		outcome, accepted := r.Process(adm.Slot, engine.JoinRoom{Name: engine.NewName(name)})
		require.True(t, accepted)
		assert.Equal(t, engine.OutcomeJoined, outcome)
	})
	require.True(t, ok)
	return id, adm.Slot, out
}

func TestOutbox(t *testing.T) {
	o := NewOutbox(2)
	assert.True(t, o.Push([]byte{1}))
	assert.True(t, o.Push([]byte{2}))
	assert.False(t, o.Push([]byte{3}), "full")

	assert.Equal(t, []byte{1}, <-o.C())
	assert.NoError(t, o.Err())
	o.CloseWith(ErrOutboxFull)
	o.Close()
	assert.False(t, o.Push([]byte{4}), "closed")
	assert.ErrorIs(t, o.Err(), ErrOutboxFull, "first reason wins")
	select {
	case <-o.Done():
	default:
		t.Fatal("done not closed")
	}

	plain := NewOutbox(1)
	plain.Close()
	assert.ErrorIs(t, plain.Err(), ErrOutboxClosed)
}

func TestRegistryAssign(t *testing.T) {
	var g Registry
	a, b := uuid.New(), uuid.New()
	outA, outB := NewOutbox(1), NewOutbox(1)

	adm, ok := g.Assign(a, outA)
	require.True(t, ok)
	assert.Equal(t, Admission{Slot: 0}, adm)
	adm, ok = g.Assign(b, outB)
	require.True(t, ok)
	assert.Equal(t, uint8(1), adm.Slot)

	// Same identity again takes over its old slot and closes the old outbox.
	outA2 := NewOutbox(1)
	adm, ok = g.Assign(a, outA2)
	require.True(t, ok)
	assert.Equal(t, Admission{Slot: 0, Existing: true}, adm)
	assert.False(t, outA.Push(nil))
	assert.ErrorIs(t, outA.Err(), ErrReplaced)
	assert.False(t, g.Owns(0, outA))
	assert.True(t, g.Owns(0, outA2))

	// Stale outboxes cannot release or detach.
	assert.False(t, g.Release(0, outA))
	assert.False(t, g.Detach(0, outA))

	assert.True(t, g.Release(0, outA2))
	adm, ok = g.Assign(uuid.New(), NewOutbox(1))
	require.True(t, ok)
	assert.Equal(t, uint8(0), adm.Slot, "lowest free slot is reused")
}

func TestRegistryFull(t *testing.T) {
	var g Registry
	for i := 0; i < engine.MaxPlayers; i++ {
		_, ok := g.Assign(uuid.New(), NewOutbox(1))
		require.True(t, ok)
	}
	_, ok := g.Assign(uuid.New(), NewOutbox(1))
	assert.False(t, ok)
	assert.Equal(t, engine.MaxPlayers, g.Connected())

	for i := uint8(0); i < engine.MaxPlayers; i++ {
		g.Detach(i, g.Get(i).Out)
	}
	assert.True(t, g.IsEmpty())
	_, ok = g.Assign(uuid.New(), NewOutbox(1))
	assert.False(t, ok, "detached slots stay reserved")
}

func TestRoomJoinFlow(t *testing.T) {
	j := &memJournal{}
	d := newTestDirectory(t, j, nil)

	_, s0, out0 := join(t, d, "ABCD", "ann")
	assert.Equal(t, uint8(0), s0)
	evs := drain(t, out0)
	require.Equal(t, []engine.ServerKind{engine.ServerRoomJoined}, kinds(evs))
	joined := evs[0].(engine.RoomJoined)
	assert.Equal(t, uint8(0), joined.Slot)
	assert.Equal(t, "ann", joined.Room.Players[0].Name.String())

	_, s1, out1 := join(t, d, "ABCD", "bob")
	assert.Equal(t, uint8(1), s1)
	assert.Equal(t, []engine.ServerKind{engine.ServerPlayerJoined}, kinds(drain(t, out0)))
	assert.Equal(t, []engine.ServerKind{engine.ServerRoomJoined}, kinds(drain(t, out1)))

	require.Len(t, j.entries, 4)
	for i, e := range j.entries {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, "ABCD", e.Room)
	}
	assert.Equal(t, uint8(1), j.entries[3].To)
	assert.Equal(t, engine.NoSlot, j.entries[2].To)
}

func TestRoomRejectedEventChangesNothing(t *testing.T) {
	j := &memJournal{}
	d := newTestDirectory(t, j, nil)
	join(t, d, "ABCD", "ann")
	_, s1, out1 := join(t, d, "ABCD", "bob")
	drain(t, out1)
	n := len(j.entries)

	d.Do("ABCD", func(r *Room) {
		before := r.State
		_, ok := r.Process(s1, engine.StartGame{})
		assert.False(t, ok, "only the host starts")
		assert.Equal(t, before, r.State)
	})
	assert.Len(t, j.entries, n)
	assert.Empty(t, drain(t, out1))
}

func TestRoomReconnect(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	id0, s0, out0 := join(t, d, "ABCD", "ann")
	_, _, out1 := join(t, d, "ABCD", "bob")
	drain(t, out0)
	drain(t, out1)

	d.Do("ABCD", func(r *Room) { r.Disconnect(s0, out0) })
	assert.Equal(t, []engine.ServerKind{engine.ServerPlayerDisconnected, engine.ServerHostChanged}, kinds(drain(t, out1)))

	again := NewOutbox(64)
	adm, err := d.Join("ABCD", id0, again)
	require.NoError(t, err)
	assert.True(t, adm.Existing)
	assert.True(t, adm.Reconnect)
	assert.Equal(t, s0, adm.Slot)

	assert.Equal(t, []engine.ServerKind{engine.ServerPlayerReconnected}, kinds(drain(t, out1)))
	evs := drain(t, again)
	require.Equal(t, []engine.ServerKind{engine.ServerRoomJoined}, kinds(evs))
	assert.False(t, evs[0].(engine.RoomJoined).Room.Players[s0].Disconnected)
}

func TestRoomTakeoverWhileConnected(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	id0, s0, out0 := join(t, d, "ABCD", "ann")
	drain(t, out0)

	again := NewOutbox(64)
	adm, err := d.Join("ABCD", id0, again)
	require.NoError(t, err)
	assert.True(t, adm.Reconnect)
	assert.False(t, out0.Push(nil), "old connection is closed")
	assert.ErrorIs(t, out0.Err(), ErrReplaced)

	// The old connection's teardown must not touch the new one.
	d.Do("ABCD", func(r *Room) {
		r.Disconnect(s0, out0)
		assert.True(t, r.Owns(s0, again))
		assert.False(t, r.State.Players[s0].Disconnected)
	})
}

func TestRoomFullOutboxDisconnects(t *testing.T) {
	log, hook := test.NewNullLogger()
	d := NewDirectory(Options{CodeLength: 4, Log: log, Seed: func() uint64 { return 1 }})
	join(t, d, "ABCD", "ann")

	id := uuid.New()
	tiny := NewOutbox(1)
	adm, err := d.Join("ABCD", id, tiny)
	require.NoError(t, err)
	d.Do("ABCD", func(r *Room) {
		r.Process(adm.Slot, engine.JoinRoom{Name: engine.NewName("bob")})
		// RoomJoined filled the outbox; the next broadcast overflows it.
		r.Process(0, engine.ChangeGame{Game: engine.GameCarbo})
		assert.True(t, r.State.Players[adm.Slot].Disconnected)
		assert.False(t, r.Owns(adm.Slot, tiny))
	})
	assert.ErrorIs(t, tiny.Err(), ErrOutboxFull)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.False(t, d.RemoveIfEmpty("ABCD"))
}

func TestRoomUnnamedSlotSeesNoBroadcasts(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	_, _, out0 := join(t, d, "ABCD", "ann")
	waiting := NewOutbox(4)
	adm, err := d.Join("ABCD", uuid.New(), waiting)
	require.NoError(t, err)

	d.Do("ABCD", func(r *Room) {
		r.Process(0, engine.ChangeGame{Game: engine.GameCarbo})
		r.Process(0, engine.ChangeGame{Game: engine.GameCoup})
	})
	assert.Empty(t, drain(t, waiting))
	assert.Len(t, drain(t, out0), 3)

	d.Do("ABCD", func(r *Room) {
		r.Process(adm.Slot, engine.JoinRoom{Name: engine.NewName("bob")})
	})
	evs := drain(t, waiting)
	require.Equal(t, []engine.ServerKind{engine.ServerRoomJoined}, kinds(evs))
	assert.Equal(t, engine.GameCoup, evs[0].(engine.RoomJoined).Room.Game)
}

func TestRoomUnnamedOverflowFreesSlot(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	_, _, out0 := join(t, d, "ABCD", "ann")
	drain(t, out0)

	tiny := NewOutbox(1)
	adm, err := d.Join("ABCD", uuid.New(), tiny)
	require.NoError(t, err)
	d.Do("ABCD", func(r *Room) {
		r.send(adm.Slot, []byte{1})
		r.send(adm.Slot, []byte{2})
		assert.Nil(t, r.conns.Get(adm.Slot), "nobody was seated, so nothing is kept")
		assert.Empty(t, r.failed)

		// The session's own teardown finds nothing left to release.
		r.Abandon(adm.Slot, tiny)
		assert.Nil(t, r.conns.Get(adm.Slot))
	})
	assert.ErrorIs(t, tiny.Err(), ErrOutboxFull)
	assert.Empty(t, drain(t, out0))

	next, err := d.Join("ABCD", uuid.New(), NewOutbox(4))
	require.NoError(t, err)
	assert.Equal(t, adm.Slot, next.Slot)
}

func TestRoomAbandonBeforeName(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	out := NewOutbox(4)
	adm, err := d.Join("ABCD", uuid.New(), out)
	require.NoError(t, err)
	d.Do("ABCD", func(r *Room) {
		assert.False(t, r.Seated(adm.Slot))
		r.Abandon(adm.Slot, out)
		assert.True(t, r.IsEmpty())
	})
	assert.Empty(t, drain(t, out))
}

func TestDirectoryValidCode(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	assert.True(t, d.ValidCode("ab12"))
	assert.True(t, d.ValidCode("ZZZZ"))
	assert.False(t, d.ValidCode("abc"))
	assert.False(t, d.ValidCode("abcde"))
	assert.False(t, d.ValidCode("ab-1"))
	assert.False(t, d.ValidCode("åbc"))
}

func TestDirectoryFullRoomNotCreated(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	for i := 0; i < engine.MaxPlayers; i++ {
		_, err := d.Join("FULL", uuid.New(), NewOutbox(1))
		require.NoError(t, err)
	}
	_, err := d.Join("FULL", uuid.New(), NewOutbox(1))
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 1, d.Len())
}

func TestDirectoryRemoveIfEmpty(t *testing.T) {
	a := &memArchiver{}
	d := newTestDirectory(t, &memJournal{}, a)
	_, s0, out0 := join(t, d, "ABCD", "ann")
	join(t, d, "WXYZ", "bob")

	assert.False(t, d.RemoveIfEmpty("ABCD"))
	assert.False(t, d.RemoveIfEmpty("NONE"))

	d.Do("ABCD", func(r *Room) { r.Leave(s0, out0) })
	assert.True(t, d.RemoveIfEmpty("ABCD"))
	assert.False(t, d.Do("ABCD", func(*Room) { t.Fatal("room still listed") }))

	sums := d.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "WXYZ", sums[0].Code)
	assert.Equal(t, 1, sums[0].Players)
	assert.Equal(t, "tycoon", sums[0].Game)

	d.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.Len(t, a.seen, 1)
	assert.Equal(t, "ABCD", a.seen[0].Code)
	assert.Equal(t, epoch, a.seen[0].Closed)
	assert.Equal(t, uint64(2), a.seen[0].Events)
}

func TestDirectoryGetOrCreate(t *testing.T) {
	d := newTestDirectory(t, nil, nil)
	r := d.GetOrCreate("ABCD")
	assert.Same(t, r, d.GetOrCreate("ABCD"))
	assert.Equal(t, epoch, r.Created)
	assert.True(t, d.RemoveIfEmpty("ABCD"))
	assert.Zero(t, d.Len())
}
