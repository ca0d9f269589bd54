package engine

import (
	"fmt"
	"testing"
)

// walk feeds a table generated client events: mostly plausible ones aimed
// at whoever the game is waiting on, plus plenty of junk.
type walk struct {
	tb       *table
	g        *RNG
	names    int
	accepted int
	rejected int
}

func (w *walk) card(hand CardSet) Card {
	if hand == 0 || w.g.Intn(8) == 0 {
		return FullDeck.Nth(w.g.Intn(FullDeck.Len()))
	}
	return hand.Nth(w.g.Intn(hand.Len()))
}

func (w *walk) cards(hand CardSet, n int) CardSet {
	var s CardSet
	for tries := 0; s.Len() < n && tries < 4*n; tries++ {
		s = s.With(w.card(hand))
	}
	return s
}

// awaited returns a slot the running game is likely waiting on.
func (w *walk) awaited() uint8 {
	r := &w.tb.server
	switch r.Game {
	case GameTycoon:
		if r.Tycoon.State == TycoonCardExchange {
			for i, n := range r.Tycoon.Owed {
				if n > 0 && w.g.Intn(2) == 0 {
					return uint8(i)
				}
			}
		}
		return r.Tycoon.Turn
	case GameCarbo:
		return r.Carbo.Turn
	case GameCoup:
		c := &r.Coup
		picks := [...]uint8{c.Turn, c.Loser, c.challenged(), c.Action.Target}
		return picks[w.g.Intn(len(picks))]
	}
	return 0
}

func (w *walk) slot() uint8 {
	switch w.g.Intn(10) {
	case 0:
		return MaxPlayers
	case 1, 2, 3, 4:
		if w.tb.server.State == StateInGame {
			return w.awaited()
		}
	}
	return uint8(w.g.Intn(6))
}

func (w *walk) event(slot uint8) ClientEvent {
	r := &w.tb.server
	if (r.State == StateInGame && w.g.Intn(10) < 7) || w.g.Intn(10) == 0 {
		return w.gameEvent(slot)
	}
	switch w.g.Intn(12) {
	case 0, 1, 2:
		w.names++
		return JoinRoom{Name: NewName(fmt.Sprintf("n%d", w.names))}
	case 3:
		return LeaveRoom{}
	case 4:
		return Disconnect{}
	case 5, 6:
		return ChangeGame{Game: GameType(w.g.Intn(int(numGameTypes) + 1))}
	case 7, 8, 9:
		return StartGame{}
	case 10:
		return ResetGame{}
	}
	return Unknown{}
}

func (w *walk) gameEvent(slot uint8) ClientEvent {
	r := &w.tb.server
	var p Player
	if slot < MaxPlayers {
		p = r.Players[slot]
	}
	game := r.Game
	if w.g.Intn(10) == 0 {
		game = GameType(w.g.Intn(int(numGameTypes)))
	}
	switch game {
	case GameTycoon:
		switch w.g.Intn(4) {
		case 0:
			return TycoonPass{}
		case 1:
			owed := 1
			if slot < MaxPlayers {
				owed = int(r.Tycoon.Owed[slot])
			}
			return TycoonExchangeCards{Cards: w.cards(p.Tycoon.Hand, owed)}
		case 2:
			c := w.card(p.Tycoon.Hand)
			return TycoonPlayCards{Cards: p.Tycoon.Hand & (RankMask(c.Rank()) | JokerMask)}
		}
		return TycoonPlayCards{Cards: SetOf(w.card(p.Tycoon.Hand))}
	case GameCarbo:
		if w.g.Intn(3) == 0 {
			return CarboDraw{}
		}
		return CarboPlayCard{Card: SetOf(w.card(p.Carbo.Hand))}
	}
	switch w.g.Intn(6) {
	case 0:
		return CoupAction{Action: PlayerAction{
			Type:   ActionType(w.g.Intn(int(ActionSteal) + 2)),
			Target: uint8(w.g.Intn(7)),
		}}
	case 1:
		return CoupCounteraction{Claim: Role(w.g.Intn(int(numRoles) + 1))}
	case 2:
		return CoupChallenge{}
	case 3:
		return CoupResolveChallenge{Card: uint8(w.g.Intn(3))}
	case 4:
		return CoupRevealCard{Card: uint8(w.g.Intn(3))}
	}
	return CoupAccept{}
}

func (w *walk) step() {
	tb := w.tb
	slot := w.slot()
	if slot < MaxPlayers && tb.replicas[slot] == nil && tb.server.Player(slot) != nil {
		// Away players send nothing until they come back.
		if w.g.Intn(2) == 0 {
			tb.reconnect(slot)
		}
		return
	}
	ev := w.event(slot)
	if !Validate(&tb.server, ev, slot) {
		tb.mustReject(slot, ev)
		w.rejected++
		return
	}
	w.accepted++
	if j, ok := ev.(JoinRoom); ok {
		tb.join(slot, j.Name.String())
		return
	}
	switch out, _ := tb.process(slot, ev); out {
	case OutcomeLeft:
		tb.replicas[slot] = nil
	case OutcomeDisconnect:
		tb.disconnect(slot)
	}
}

func TestRandomEvents(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		tb := newTable(t, seed)
		w := &walk{tb: tb, g: NewRNG(seed * 7919)}
		for i := 0; i < 2000; i++ {
			w.step()
			tb.checkReplicas()
		}
		t.Logf("seed %d: %d accepted, %d rejected, %d events sent", seed, w.accepted, w.rejected, len(tb.log))
	}
}
