package engine

import "testing"

func carboTable(t *testing.T, seed uint64, n int) *table {
	t.Helper()
	tb := newTable(t, seed)
	tb.seat(n)
	tb.mustPlay(0, ChangeGame{Game: GameCarbo})
	tb.mustPlay(0, StartGame{})
	return tb
}

func TestCarboStart(t *testing.T) {
	tb := carboTable(t, 4, 3)
	r := &tb.server

	if r.State != StateInGame || r.Carbo.State != CarboPlaying {
		t.Fatalf("State = %d/%d, want in game/playing", r.State, r.Carbo.State)
	}
	var dealt CardSet
	for i := 0; i < 3; i++ {
		p := r.Players[i].Carbo
		if p.Hand.Len() != carboHandSize || p.NumCards != carboHandSize {
			t.Fatalf("slot %d: hand %d cards, NumCards %d, want %d", i, p.Hand.Len(), p.NumCards, carboHandSize)
		}
		dealt |= p.Hand
	}
	if dealt&r.Carbo.Deck != 0 {
		t.Fatalf("deck overlaps the hands")
	}
	if dealt|r.Carbo.Deck != StandardDeck {
		t.Fatalf("hands plus deck is not the standard deck")
	}
	if int(r.Carbo.DeckLen) != r.Carbo.Deck.Len() {
		t.Fatalf("DeckLen = %d, want %d", r.Carbo.DeckLen, r.Carbo.Deck.Len())
	}
	if r.Carbo.Top != EmptyCard || r.Carbo.Winner != NoSlot {
		t.Fatalf("Top, Winner = %x, %d, want empty, NoSlot", r.Carbo.Top, r.Carbo.Winner)
	}
	if rep := tb.replicas[1]; rep.Carbo.Deck != 0 || rep.Players[0].Carbo.Hand != 0 {
		t.Fatalf("replica learned hidden cards")
	}
	tb.checkReplicas()
}

func TestCarboPlayAndDraw(t *testing.T) {
	tb := carboTable(t, 4, 3)
	tb.dropReplicas()
	r := &tb.server

	c := func(suit, rank uint8) Card { return NewCard(suit, rank) }
	r.Carbo.Turn = 0
	r.Players[0].Carbo = CarboPlayer{Hand: SetOf(c(SuitHearts, RankFive), c(SuitClubs, RankKing)), NumCards: 2}
	r.Players[1].Carbo = CarboPlayer{Hand: SetOf(c(SuitSpades, RankNine), c(SuitHearts, RankNine)), NumCards: 2}
	r.Players[2].Carbo = CarboPlayer{Hand: SetOf(c(SuitDiamonds, RankTwo)), NumCards: 1}
	for i := 0; i < 3; i++ {
		r.Carbo.Deck &^= r.Players[i].Carbo.Hand
	}
	r.Carbo.DeckLen = uint8(r.Carbo.Deck.Len())

	tb.mustReject(1, CarboPlayCard{Card: SetOf(c(SuitHearts, RankNine))})
	tb.mustReject(0, CarboPlayCard{Card: SetOf(c(SuitHearts, RankFive), c(SuitClubs, RankKing))})
	tb.mustReject(0, CarboPlayCard{Card: SetOf(c(SuitSpades, RankAce))}) // not in hand
	tb.mustPlay(0, CarboPlayCard{Card: SetOf(c(SuitHearts, RankFive))})

	if r.Carbo.Top != c(SuitHearts, RankFive) || r.Carbo.Turn != 1 {
		t.Fatalf("Top, Turn = %x, %d", r.Carbo.Top, r.Carbo.Turn)
	}
	if !r.Players[0].Carbo.VisibleCards.Has(c(SuitHearts, RankFive)) || r.Players[0].Carbo.NumCards != 1 {
		t.Fatalf("played card not moved to the visible set")
	}

	tb.mustReject(1, CarboPlayCard{Card: SetOf(c(SuitSpades, RankNine))}) // no match
	tb.mustPlay(1, CarboPlayCard{Card: SetOf(c(SuitHearts, RankNine))})   // suit match

	tb.mustReject(2, CarboPlayCard{Card: SetOf(c(SuitDiamonds, RankTwo))})
	deck := r.Carbo.DeckLen
	n := len(tb.log)
	tb.mustPlay(2, CarboDraw{})

	if r.Players[2].Carbo.NumCards != 2 || r.Players[2].Carbo.Hand.Len() != 2 {
		t.Fatalf("draw did not add a card")
	}
	if r.Carbo.DeckLen != deck-1 || r.Carbo.Deck.Len() != int(deck-1) {
		t.Fatalf("DeckLen = %d, want %d", r.Carbo.DeckLen, deck-1)
	}
	if _, ok := tb.log[n].ev.(CarboCardDrawn); !ok || tb.log[n].to != 2 {
		t.Fatalf("drawn card not sent privately to the drawer: %+v", tb.log[n])
	}
	if r.Carbo.Turn != 0 {
		t.Fatalf("Turn = %d, want 0", r.Carbo.Turn)
	}
}

func TestCarboDrawFromEmptyDeckPasses(t *testing.T) {
	tb := carboTable(t, 4, 3)
	tb.dropReplicas()
	r := &tb.server
	r.Carbo.Deck = 0
	r.Carbo.DeckLen = 0
	turn := r.Carbo.Turn
	cards := r.Players[turn].Carbo.NumCards

	tb.mustPlay(turn, CarboDraw{})
	if r.Players[turn].Carbo.NumCards != cards {
		t.Fatalf("NumCards changed on an empty deck")
	}
	if d, ok := tb.log[len(tb.log)-1].ev.(CarboDrew); !ok || d.Drawn {
		t.Fatalf("last event = %+v, want CarboDrew{Drawn: false}", tb.log[len(tb.log)-1].ev)
	}
	if r.Carbo.Turn == turn {
		t.Fatalf("turn did not move on")
	}
}

func TestCarboWin(t *testing.T) {
	tb := carboTable(t, 4, 3)
	tb.dropReplicas()
	r := &tb.server
	card := NewCard(SuitClubs, RankSeven)
	r.Carbo.Turn = 2
	r.Carbo.Top = EmptyCard
	r.Players[2].Carbo = CarboPlayer{Hand: SetOf(card), NumCards: 1}

	tb.mustPlay(2, CarboPlayCard{Card: SetOf(card)})
	if r.Carbo.Winner != 2 || r.State != StateLobby || r.Carbo.State != CarboLobby {
		t.Fatalf("Winner, State = %d, %d, want 2, lobby", r.Carbo.Winner, r.State)
	}
	tb.mustPlay(0, StartGame{})
}

func TestCarboReplicas(t *testing.T) {
	tb := carboTable(t, 21, 4)
	for i := 0; i < 500 && tb.server.State == StateInGame; i++ {
		r := &tb.server
		turn := r.Carbo.Turn
		var move ClientEvent = CarboDraw{}
		for _, c := range r.Players[turn].Carbo.Hand.Cards() {
			ev := CarboPlayCard{Card: SetOf(c)}
			if Validate(r, ev, turn) {
				move = ev
				break
			}
		}
		tb.mustPlay(turn, move)
		tb.checkReplicas()
	}
}

func TestCarboLateJoinerSitsOut(t *testing.T) {
	tb := carboTable(t, 4, 3)
	tb.join(5, "late")
	r := &tb.server
	for i := 0; i < 9; i++ {
		turn := r.Carbo.Turn
		if turn == 5 {
			t.Fatalf("late joiner got the turn")
		}
		tb.mustReject(5, CarboDraw{})
		tb.mustPlay(turn, CarboDraw{})
		tb.checkReplicas()
	}

	tb.leave(1)
	if r.State != StateInGame || r.Carbo.Turn == 5 {
		t.Fatalf("State, Turn = %d, %d, want in game, not the joiner", r.State, r.Carbo.Turn)
	}
	// One dealt-in player left ends the round, whoever else is seated.
	tb.leave(2)
	if r.State != StateLobby || r.Carbo.Winner != 0 {
		t.Fatalf("State, Winner = %d, %d, want lobby, 0", r.State, r.Carbo.Winner)
	}
	tb.checkReplicas()
}

func TestCarboTurnHolderMustHoldCards(t *testing.T) {
	tb := carboTable(t, 4, 3)
	tb.join(5, "late")
	tb.dropReplicas()
	tb.server.Carbo.Turn = 5
	tb.mustReject(5, CarboDraw{})
}
