package engine

// GameConfig holds the seat limits of a game.
type GameConfig struct {
	MaxPlayers int
	MinPlayers int
}

// ConfigFor returns the seat limits for g.
func ConfigFor(g GameType) GameConfig {
	switch g {
	case GameTycoon:
		return GameConfig{MaxPlayers: 8, MinPlayers: 3}
	case GameCarbo:
		return GameConfig{MaxPlayers: 8, MinPlayers: 3}
	case GameCoup:
		return GameConfig{MaxPlayers: 6, MinPlayers: 3}
	}
	return GameConfig{}
}

// canStart reports whether slot may start the active game right now.
func canStart(r *Room, slot uint8) bool {
	if !r.IsHost(slot) || !r.IsLobby() {
		return false
	}
	cfg := ConfigFor(r.Game)
	n := r.NumPlayers()
	if n < cfg.MinPlayers || n > cfg.MaxPlayers {
		return false
	}
	switch r.Game {
	case GameTycoon:
		return r.Tycoon.State == TycoonLobby
	case GameCarbo:
		return r.Carbo.State == CarboLobby
	case GameCoup:
		return r.Coup.Phase == CoupLobby
	}
	return false
}

// migrate switches r to game, keeping only the common per-seat fields
// (presence, name, disconnected) and the host. Every game payload starts
// from zero.
func migrate(r *Room, game GameType) {
	next := Room{
		State: StateLobby,
		Game:  game,
		Host:  r.Host,
		Self:  r.Self,
	}
	for i := range r.Players {
		p := &r.Players[i]
		if !p.Present {
			continue
		}
		next.Players[i] = Player{Present: true, Name: p.Name, Disconnected: p.Disconnected}
	}
	next.Tycoon.LastPlayedPlayer = NoSlot
	next.Carbo.Winner = NoSlot
	next.Coup.Winner = NoSlot
	*r = next
}
