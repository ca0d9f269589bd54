// Package engine implements the room protocol shared by the server and every
// client replica: the two event alphabets, Validate and Apply, and the card
// games that plug into them.
//
// Room is a flat value type (arrays and scalars only, no pointers, slices or
// maps). A snapshot is a plain copy and two replicas compare with ==.
package engine

import "strings"

const (
	MaxPlayers    = 8
	MaxNameLength = 20
)

// NoSlot marks the absence of a slot, e.g. a broadcast with no recipient.
const NoSlot uint8 = 0xFF

// GameType selects the active game of a room.
type GameType uint8

const (
	GameTycoon GameType = iota
	GameCarbo
	GameCoup
	numGameTypes
)

// Valid reports whether g names a known game.
func (g GameType) Valid() bool { return g < numGameTypes }

func (g GameType) String() string {
	switch g {
	case GameTycoon:
		return "tycoon"
	case GameCarbo:
		return "carbo"
	case GameCoup:
		return "coup"
	}
	return "unknown"
}

// RoomState is the room-level lifecycle shared by every game.
type RoomState uint8

const (
	StateLobby RoomState = iota
	StateInGame
)

// Name is a display name stored in a fixed-length, zero-padded buffer.
type Name [MaxNameLength]byte

// NewName copies s into a Name, truncating to MaxNameLength bytes.
func NewName(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

func (n Name) String() string {
	return strings.TrimRight(string(n[:]), "\x00")
}

// Player is one seat's replicated state. Present is false for an empty seat.
type Player struct {
	_            struct{} `cbor:",toarray"`
	Present      bool
	Name         Name
	Disconnected bool
	Tycoon       TycoonPlayer
	Carbo        CarboPlayer
	Coup         CoupPlayer
}

// Room is the authoritative (server) or replicated (client) state of a room.
// Only the payload matching Game is semantically live.
type Room struct {
	_       struct{} `cbor:",toarray"`
	State   RoomState
	Game    GameType
	Host    uint8
	Self    uint8 // recipient's own slot on a client replica, NoSlot on the server
	Players [MaxPlayers]Player
	Tycoon  TycoonRoom
	Carbo   CarboRoom
	Coup    CoupRoom
}

// NewRoom returns an empty lobby room.
func NewRoom() Room {
	r := Room{Self: NoSlot}
	migrate(&r, GameTycoon)
	return r
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// Player returns the player seated at slot, or nil when the seat is empty.
func (r *Room) Player(slot uint8) *Player {
	if slot >= MaxPlayers || !r.Players[slot].Present {
		return nil
	}
	return &r.Players[slot]
}

// NumPlayers counts occupied seats, connected or not.
func (r *Room) NumPlayers() int {
	n := 0
	for i := range r.Players {
		if r.Players[i].Present {
			n++
		}
	}
	return n
}

// Connected reports whether slot holds a player that is not disconnected.
func (r *Room) Connected(slot uint8) bool {
	p := r.Player(slot)
	return p != nil && !p.Disconnected
}

// FirstConnected returns the lowest slot holding a connected player, or NoSlot.
func (r *Room) FirstConnected() uint8 {
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Connected(i) {
			return i
		}
	}
	return NoSlot
}

// IsHost reports whether slot is the host and is seated.
func (r *Room) IsHost(slot uint8) bool {
	return r.Host == slot && r.Player(slot) != nil
}

// IsLobby reports whether the room is between games.
func (r *Room) IsLobby() bool { return r.State == StateLobby }

// nextSeat returns the first seat after from (wrapping) whose player
// satisfies ok, or NoSlot. from itself is considered last.
func (r *Room) nextSeat(from uint8, ok func(p *Player) bool) uint8 {
	for step := uint8(1); step <= MaxPlayers; step++ {
		slot := (from + step) % MaxPlayers
		if p := r.Player(slot); p != nil && ok(p) {
			return slot
		}
	}
	return NoSlot
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// RedactFor returns the snapshot sent to slot in RoomJoined: other players'
// hidden cards and the server-held decks are cleared.
func (r *Room) RedactFor(slot uint8) Room {
	out := *r
	for i := range out.Players {
		if uint8(i) == slot || !out.Players[i].Present {
			continue
		}
		p := &out.Players[i]
		p.Tycoon.Hand = 0
		p.Carbo.Hand = 0
		for c := range p.Coup.Cards {
			if !p.Coup.Cards[c].Revealed {
				p.Coup.Cards[c].Role = RoleUnknown
			}
		}
	}
	out.Carbo.Deck = 0
	out.Coup.Deck = [CoupDeckSize]Role{}
	out.Self = NoSlot
	return out
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

// RNG is the server's source of shuffles. It never travels with the room so
// replicas cannot predict deals.
type RNG struct {
	state uint64
}

// NewRNG seeds an RNG. A zero seed is replaced, xorshift can't start at 0.
func NewRNG(seed uint64) *RNG {
	if seed == 0 {
		seed = 1
	}
	return &RNG{state: seed}
}

func (g *RNG) next() uint64 {
	x := g.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.state = x
	return x
}

// Intn returns a random number in [0, n).
func (g *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.next() % uint64(n))
}

// Draw removes one random card from *deck and returns it, or EmptyCard if
// the deck is empty.
func (g *RNG) Draw(deck *CardSet) Card {
	n := deck.Len()
	if n == 0 {
		return EmptyCard
	}
	c := deck.Nth(g.Intn(n))
	*deck &^= SetOf(c)
	return c
}

// deal hands out cards from deck round-robin to every seated player,
// perHand cards each, or the whole deck when perHand is 0. Returns the hands
// and what is left of the deck.
func (g *RNG) deal(r *Room, deck CardSet, perHand int) ([MaxPlayers]CardSet, CardSet) {
	var hands [MaxPlayers]CardSet
	cards := deck.Cards()
	// Fisher-Yates shuffle.
	for i := len(cards) - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}

	seats := make([]uint8, 0, MaxPlayers)
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) != nil {
			seats = append(seats, i)
		}
	}
	if len(seats) == 0 {
		return hands, deck
	}

	total := len(cards)
	if perHand > 0 && perHand*len(seats) < total {
		total = perHand * len(seats)
	}
	for i := 0; i < total; i++ {
		seat := seats[i%len(seats)]
		hands[seat] = hands[seat].With(cards[i])
	}
	return hands, SetOf(cards[total:]...)
}

// pickSeat returns a uniformly random seated slot, or NoSlot.
func (g *RNG) pickSeat(r *Room) uint8 {
	n := r.NumPlayers()
	if n == 0 {
		return NoSlot
	}
	k := g.Intn(n)
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) == nil {
			continue
		}
		if k == 0 {
			return i
		}
		k--
	}
	return NoSlot
}
