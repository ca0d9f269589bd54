package room

import (
	"github.com/google/uuid"

	"github.com/TylerMG2/card-games/engine"
)

// Connection is the registry record of one slot. Out is nil while the
// player is disconnected.
type Connection struct {
	ID  uuid.UUID
	Out *Outbox
}

// Admission is the result of assigning an identity to a slot.
type Admission struct {
	Slot uint8
	// Existing is true when the identity already held the slot.
	Existing bool
	// Reconnect is true when that slot also still has a seated player.
	Reconnect bool
}

// Registry maps slots to connections. It has no lock of its own: it is
// only touched under the Directory lock.
type Registry struct {
	slots [engine.MaxPlayers]*Connection
}

// Assign finds the slot already held by id, or the lowest free slot. An
// existing record gets out as its new outbox and the old one is closed.
func (g *Registry) Assign(id uuid.UUID, out *Outbox) (Admission, bool) {
	free := engine.NoSlot
	for i, c := range g.slots {
		if c == nil {
			if free == engine.NoSlot {
				free = uint8(i)
			}
			continue
		}
		if c.ID == id {
			if c.Out != nil && c.Out != out {
				c.Out.CloseWith(ErrReplaced)
			}
			c.Out = out
			return Admission{Slot: uint8(i), Existing: true}, true
		}
	}
	if free == engine.NoSlot {
		return Admission{}, false
	}
	g.slots[free] = &Connection{ID: id, Out: out}
	return Admission{Slot: free}, true
}

// Get returns the record at slot, or nil.
func (g *Registry) Get(slot uint8) *Connection {
	if slot >= engine.MaxPlayers {
		return nil
	}
	return g.slots[slot]
}

// Owns reports whether out is still the live outbox of slot. A reconnect
// from elsewhere replaces it.
func (g *Registry) Owns(slot uint8, out *Outbox) bool {
	c := g.Get(slot)
	return c != nil && c.Out == out
}

// Release frees slot if out still owns it.
func (g *Registry) Release(slot uint8, out *Outbox) bool {
	if !g.Owns(slot, out) {
		return false
	}
	g.slots[slot] = nil
	return true
}

// Drop frees slot unconditionally.
func (g *Registry) Drop(slot uint8) {
	if slot < engine.MaxPlayers {
		g.slots[slot] = nil
	}
}

// Detach keeps the slot but drops its outbox, if out still owns it.
func (g *Registry) Detach(slot uint8, out *Outbox) bool {
	if !g.Owns(slot, out) {
		return false
	}
	g.slots[slot].Out = nil
	return true
}

// IsEmpty reports whether no slot has a live outbox.
func (g *Registry) IsEmpty() bool {
	for _, c := range g.slots {
		if c != nil && c.Out != nil {
			return false
		}
	}
	return true
}

// Connected counts slots with a live outbox.
func (g *Registry) Connected() int {
	n := 0
	for _, c := range g.slots {
		if c != nil && c.Out != nil {
			n++
		}
	}
	return n
}
