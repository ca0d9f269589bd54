package engine

// The functions below are the only place the active game is switched on.
// Adding a GameType means adding a case to each of them.

func validateGame(r *Room, ev GameClientEvent, slot uint8) bool {
	switch r.Game {
	case GameTycoon:
		return validateTycoon(r, ev, slot)
	case GameCarbo:
		return validateCarbo(r, ev, slot)
	case GameCoup:
		return validateCoup(r, ev, slot)
	}
	return false
}

func handleGame(r *Room, ev GameClientEvent, slot uint8, out Emitter, rng *RNG) {
	switch r.Game {
	case GameTycoon:
		handleTycoon(r, ev, slot, out, rng)
	case GameCarbo:
		handleCarbo(r, ev, slot, out, rng)
	case GameCoup:
		handleCoup(r, ev, slot, out, rng)
	}
}

func applyGame(r *Room, ev GameServerEvent, slot uint8, origin bool) {
	switch r.Game {
	case GameTycoon:
		applyTycoon(r, ev, slot)
	case GameCarbo:
		applyCarbo(r, ev, slot)
	case GameCoup:
		applyCoup(r, ev, slot, origin)
	}
}

func startGame(r *Room, out Emitter, rng *RNG) {
	switch r.Game {
	case GameTycoon:
		startTycoon(r, out, rng)
	case GameCarbo:
		startCarbo(r, out, rng)
	case GameCoup:
		startCoup(r, out, rng)
	}
}

// gameJoined keeps a player seated mid-round out of play until the next deal.
func gameJoined(r *Room, slot uint8) {
	if r.State != StateInGame {
		return
	}
	switch r.Game {
	case GameTycoon, GameCarbo:
		// An empty hand already keeps them out of the turn order.
	case GameCoup:
		coupJoined(r, slot)
	}
}

// gameLeft keeps a running game playable after slot's player was removed.
func gameLeft(r *Room, slot uint8) {
	if r.State != StateInGame {
		return
	}
	switch r.Game {
	case GameTycoon:
		tycoonLeft(r, slot)
	case GameCarbo:
		carboLeft(r, slot)
	case GameCoup:
		coupLeft(r, slot)
	}
}
