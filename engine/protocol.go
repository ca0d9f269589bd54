package engine

// Emitter fans server events out to the connections of one room. Every
// method applies the event to the authoritative room exactly once, then
// sends it.
type Emitter interface {
	Broadcast(ev ServerEvent)
	BroadcastExcept(slot uint8, ev ServerEvent)
	SendTo(slot uint8, ev ServerEvent)
}

// Outcome tells the connection lifecycle what a handled event means for it.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeJoined
	OutcomeLeft
	OutcomeDisconnect
)

// Validate reports whether slot may submit ev against r. It never mutates r.
func Validate(r *Room, ev ClientEvent, slot uint8) bool {
	if slot >= MaxPlayers {
		return false
	}
	switch e := ev.(type) {
	case JoinRoom:
		return !r.Players[slot].Present
	case LeaveRoom, Disconnect:
		return true
	case ChangeGame:
		return r.IsHost(slot) && r.IsLobby() &&
			e.Game.Valid() && e.Game != r.Game &&
			r.NumPlayers() <= ConfigFor(e.Game).MaxPlayers
	case StartGame:
		return canStart(r, slot)
	case ResetGame:
		return r.IsHost(slot)
	case GameClientEvent:
		if e.GameType() != r.Game || r.Player(slot) == nil {
			return false
		}
		return validateGame(r, e, slot)
	case Unknown:
		return false
	}
	return false
}

// Apply mutates r with ev. It performs no I/O and is run identically by the
// server and by every client replica.
//
// slot is the recipient for a direct send and NoSlot for a broadcast. origin
// is true on the server, which emitted the event: RoomJoined then leaves r
// untouched, since r is the state the snapshot was taken from.
func Apply(r *Room, ev ServerEvent, slot uint8, origin bool) {
	switch e := ev.(type) {
	case RoomJoined:
		if !origin {
			*r = e.Room
			r.Self = e.Slot
		}
	case PlayerJoined:
		if e.Slot < MaxPlayers {
			r.Players[e.Slot] = Player{Present: true, Name: e.Name}
			gameJoined(r, e.Slot)
		}
	case PlayerLeft:
		if e.Slot < MaxPlayers {
			r.Players[e.Slot] = Player{}
			gameLeft(r, e.Slot)
		}
	case PlayerDisconnected:
		if p := r.Player(e.Slot); p != nil {
			p.Disconnected = true
		}
	case PlayerReconnected:
		if p := r.Player(e.Slot); p != nil {
			p.Disconnected = false
		}
	case HostChanged:
		if e.Slot < MaxPlayers {
			r.Host = e.Slot
		}
	case GameChanged:
		if e.Game.Valid() {
			migrate(r, e.Game)
		}
	case GameReset:
		migrate(r, r.Game)
	case GameServerEvent:
		if e.GameType() == r.Game {
			applyGame(r, e, slot, origin)
		}
	case Unknown:
	}
}

// Handle dispatches an event that already passed Validate. Common events
// emit through out; game events are handed to the active game.
func Handle(r *Room, ev ClientEvent, slot uint8, out Emitter, rng *RNG) Outcome {
	switch e := ev.(type) {
	case JoinRoom:
		out.BroadcastExcept(slot, PlayerJoined{Name: e.Name, Slot: slot})
		out.SendTo(slot, RoomJoined{Room: r.RedactFor(slot), Slot: slot})
		RepairHost(r, out)
		return OutcomeJoined
	case LeaveRoom:
		if r.Player(slot) != nil {
			out.BroadcastExcept(slot, PlayerLeft{Slot: slot})
			RepairHost(r, out)
		}
		return OutcomeLeft
	case Disconnect:
		return OutcomeDisconnect
	case ChangeGame:
		out.Broadcast(GameChanged{Game: e.Game})
	case StartGame:
		startGame(r, out, rng)
	case ResetGame:
		out.Broadcast(GameReset{})
	case GameClientEvent:
		handleGame(r, e, slot, out, rng)
	}
	return OutcomeNone
}

// Process runs one decoded client event through Validate and, if accepted,
// Handle. Rejected events leave r untouched.
func Process(r *Room, ev ClientEvent, slot uint8, out Emitter, rng *RNG) (Outcome, bool) {
	if !Validate(r, ev, slot) {
		return OutcomeNone, false
	}
	return Handle(r, ev, slot, out, rng), true
}

// HandleReconnect replays a returning player back into the room: the others
// learn it is back and the player gets a fresh snapshot.
func HandleReconnect(r *Room, slot uint8, out Emitter) {
	if r.Player(slot) == nil {
		return
	}
	out.BroadcastExcept(slot, PlayerReconnected{Slot: slot})
	out.SendTo(slot, RoomJoined{Room: r.RedactFor(slot), Slot: slot})
	RepairHost(r, out)
}

// HandleDisconnect marks a seated player as away and moves the host if needed.
// It is a no-op for empty seats and players already marked disconnected.
func HandleDisconnect(r *Room, slot uint8, out Emitter) {
	p := r.Player(slot)
	if p == nil || p.Disconnected {
		return
	}
	out.BroadcastExcept(slot, PlayerDisconnected{Slot: slot})
	RepairHost(r, out)
}

// RepairHost hands the host to the lowest connected slot when the current
// host is gone or away. With nobody connected the host is left as is.
func RepairHost(r *Room, out Emitter) {
	if r.Connected(r.Host) {
		return
	}
	if next := r.FirstConnected(); next != NoSlot {
		out.Broadcast(HostChanged{Slot: next})
	}
}
