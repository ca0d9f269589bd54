package room

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TylerMG2/card-games/engine"
	"github.com/TylerMG2/card-games/engine/wire"
)

// ErrRoomFull is returned when every slot is held by another identity.
var ErrRoomFull = errors.New("room is full")

// Entry is one applied server event, as handed to the Journal.
type Entry struct {
	Room    string
	Seq     uint64
	To      uint8 // recipient slot, engine.NoSlot for a broadcast
	Kind    engine.ServerKind
	Payload []byte
	At      time.Time
}

// Journal receives every event applied to a room, in order. Record is
// called with the directory lock held and must not block.
type Journal interface {
	Record(e Entry)
}

// Room is the authoritative state of one room code plus its connections.
// Every method assumes the Directory lock is held by the caller.
type Room struct {
	Code    string
	State   engine.Room
	Created time.Time

	conns   Registry
	rng     *engine.RNG
	journal Journal
	log     logrus.FieldLogger
	now     func() time.Time

	seq      uint64
	failed   []uint8
	flushing bool
}

func newRoom(code string, seed uint64, journal Journal, log logrus.FieldLogger, now func() time.Time) *Room {
	return &Room{
		Code:    code,
		State:   engine.NewRoom(),
		Created: now(),
		rng:     engine.NewRNG(seed),
		journal: journal,
		log:     log.WithField("room", code),
		now:     now,
	}
}

// ---------------------------------------------------------------------------
// engine.Emitter
// ---------------------------------------------------------------------------

func (r *Room) Broadcast(ev engine.ServerEvent) {
	r.BroadcastExcept(engine.NoSlot, ev)
}

func (r *Room) BroadcastExcept(except uint8, ev engine.ServerEvent) {
	engine.Apply(&r.State, ev, engine.NoSlot, true)
	msg := r.emit(engine.NoSlot, ev)
	if msg != nil {
		for slot := uint8(0); slot < engine.MaxPlayers; slot++ {
			// A slot still waiting for its name sees nothing until RoomJoined.
			if slot != except && r.State.Player(slot) != nil {
				r.send(slot, msg)
			}
		}
	}
	r.flush()
}

func (r *Room) SendTo(slot uint8, ev engine.ServerEvent) {
	engine.Apply(&r.State, ev, slot, true)
	if msg := r.emit(slot, ev); msg != nil {
		r.send(slot, msg)
	}
	r.flush()
}

// emit encodes ev and hands it to the journal.
func (r *Room) emit(to uint8, ev engine.ServerEvent) []byte {
	msg, err := wire.EncodeServer(ev)
	if err != nil {
		r.log.WithError(err).WithField("kind", ev.ServerKind()).Error("encode server event")
		return nil
	}
	r.seq++
	if r.journal != nil {
		r.journal.Record(Entry{
			Room:    r.Code,
			Seq:     r.seq,
			To:      to,
			Kind:    ev.ServerKind(),
			Payload: msg,
			At:      r.now(),
		})
	}
	return msg
}

// send pushes msg to slot's outbox. A refused push drops the outbox and
// queues a disconnect for the slot. A slot with no seated player has nothing
// to keep, so it is freed instead.
func (r *Room) send(slot uint8, msg []byte) {
	c := r.conns.Get(slot)
	if c == nil || c.Out == nil {
		return
	}
	if c.Out.Push(msg) {
		return
	}
	r.log.WithField("slot", slot).Warn("outbox refused message, dropping connection")
	c.Out.CloseWith(ErrOutboxFull)
	if r.State.Player(slot) == nil {
		r.conns.Drop(slot)
		return
	}
	c.Out = nil
	r.failed = append(r.failed, slot)
}

// flush turns queued send failures into disconnects. Disconnect events can
// fail further sends, so it loops until the queue is drained.
func (r *Room) flush() {
	if r.flushing {
		return
	}
	r.flushing = true
	for len(r.failed) > 0 {
		slot := r.failed[0]
		r.failed = r.failed[1:]
		engine.HandleDisconnect(&r.State, slot, r)
	}
	r.flushing = false
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Admit assigns id a slot. A returning player whose seat is still taken
// gets PlayerReconnected and a fresh snapshot.
func (r *Room) Admit(id uuid.UUID, out *Outbox) (Admission, error) {
	adm, ok := r.conns.Assign(id, out)
	if !ok {
		return Admission{}, ErrRoomFull
	}
	adm.Reconnect = adm.Existing && r.State.Player(adm.Slot) != nil
	if adm.Reconnect {
		engine.HandleReconnect(&r.State, adm.Slot, r)
		r.flush()
	}
	return adm, nil
}

// Process runs one client event from slot through the protocol.
func (r *Room) Process(slot uint8, ev engine.ClientEvent) (engine.Outcome, bool) {
	out, ok := engine.Process(&r.State, ev, slot, r, r.rng)
	r.flush()
	return out, ok
}

// Owns reports whether out is still the live outbox of slot.
func (r *Room) Owns(slot uint8, out *Outbox) bool { return r.conns.Owns(slot, out) }

// Seated reports whether slot has a player.
func (r *Room) Seated(slot uint8) bool { return r.State.Player(slot) != nil }

// Leave frees the slot after the player left for good.
func (r *Room) Leave(slot uint8, out *Outbox) {
	r.conns.Release(slot, out)
}

// Disconnect detaches out from slot and marks the player away. Nothing
// happens if another connection took the slot over in the meantime.
func (r *Room) Disconnect(slot uint8, out *Outbox) {
	if !r.conns.Detach(slot, out) {
		return
	}
	engine.HandleDisconnect(&r.State, slot, r)
	r.flush()
}

// Abandon undoes an admission that never sent its name.
func (r *Room) Abandon(slot uint8, out *Outbox) {
	if r.State.Player(slot) != nil {
		r.Disconnect(slot, out)
		return
	}
	r.conns.Release(slot, out)
}

// IsEmpty reports whether no slot has a live connection.
func (r *Room) IsEmpty() bool { return r.conns.IsEmpty() }

// Summary describes the room for the ops listing and the archive.
type Summary struct {
	Code      string    `json:"code"`
	Game      string    `json:"game"`
	InGame    bool      `json:"in_game"`
	Players   int       `json:"players"`
	Connected int       `json:"connected"`
	Events    uint64    `json:"events"`
	Created   time.Time `json:"created"`
	Closed    time.Time `json:"closed,omitzero"`
}

func (r *Room) Summary() Summary {
	return Summary{
		Code:      r.Code,
		Game:      r.State.Game.String(),
		InGame:    r.State.State == engine.StateInGame,
		Players:   r.State.NumPlayers(),
		Connected: r.conns.Connected(),
		Events:    r.seq,
		Created:   r.Created,
	}
}
