package engine

const carboHandSize = 4

// CarboState is the phase of a Carbo round.
type CarboState uint8

const (
	CarboLobby CarboState = iota
	CarboPlaying
)

// CarboRoom is the shared Carbo state. Each turn a player either plays a
// card matching the rank or suit of Top, or draws. First empty hand wins.
type CarboRoom struct {
	_       struct{} `cbor:",toarray"`
	State   CarboState
	Turn    uint8
	Top     Card
	Deck    CardSet // server-held draw pile, never replicated
	DeckLen uint8
	Winner  uint8
}

type CarboPlayer struct {
	_            struct{} `cbor:",toarray"`
	Hand         CardSet  // owner and server only
	VisibleCards CardSet  // cards the player has put face up
	NumCards     uint8
}

// CarboPlayCard plays one card from the sender's hand.
type CarboPlayCard struct {
	_    struct{} `cbor:",toarray"`
	Card CardSet
}

// CarboDraw takes the top of the draw pile and ends the turn.
type CarboDraw struct{}

type CarboGameStarted struct {
	_     struct{} `cbor:",toarray"`
	Turn  uint8
	Cards CardSet
}

type CarboCardPlayed struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Card   CardSet
}

// CarboCardDrawn tells the drawing player which card it got.
type CarboCardDrawn struct {
	_    struct{} `cbor:",toarray"`
	Card CardSet
}

// CarboDrew tells everyone a player drew (or passed on an empty pile).
type CarboDrew struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Drawn  bool
}

func (CarboPlayCard) ClientKind() ClientKind { return ClientCarboPlayCard }
func (CarboDraw) ClientKind() ClientKind     { return ClientCarboDraw }
func (CarboPlayCard) GameType() GameType     { return GameCarbo }
func (CarboDraw) GameType() GameType         { return GameCarbo }

func (CarboGameStarted) ServerKind() ServerKind { return ServerCarboGameStarted }
func (CarboCardPlayed) ServerKind() ServerKind  { return ServerCarboCardPlayed }
func (CarboCardDrawn) ServerKind() ServerKind   { return ServerCarboCardDrawn }
func (CarboDrew) ServerKind() ServerKind        { return ServerCarboDrew }
func (CarboGameStarted) GameType() GameType     { return GameCarbo }
func (CarboCardPlayed) GameType() GameType      { return GameCarbo }
func (CarboCardDrawn) GameType() GameType       { return GameCarbo }
func (CarboDrew) GameType() GameType            { return GameCarbo }

func validateCarbo(r *Room, ev GameClientEvent, slot uint8) bool {
	c := &r.Carbo
	if c.State != CarboPlaying || c.Turn != slot || !carboDealtIn(r.Player(slot)) {
		return false
	}
	switch e := ev.(type) {
	case CarboPlayCard:
		if e.Card.Len() != 1 || !r.Players[slot].Carbo.Hand.Contains(e.Card) {
			return false
		}
		if c.Top == EmptyCard {
			return true
		}
		card := e.Card.Nth(0)
		return card.Rank() == c.Top.Rank() || card.Suit() == c.Top.Suit()
	case CarboDraw:
		return true
	}
	return false
}

func handleCarbo(r *Room, ev GameClientEvent, slot uint8, out Emitter, rng *RNG) {
	switch e := ev.(type) {
	case CarboPlayCard:
		out.Broadcast(CarboCardPlayed{Player: slot, Card: e.Card})
	case CarboDraw:
		card := rng.Draw(&r.Carbo.Deck)
		if card != EmptyCard {
			out.SendTo(slot, CarboCardDrawn{Card: SetOf(card)})
		}
		out.Broadcast(CarboDrew{Player: slot, Drawn: card != EmptyCard})
	}
}

func startCarbo(r *Room, out Emitter, rng *RNG) {
	hands, rest := rng.deal(r, StandardDeck, carboHandSize)
	r.Carbo.Deck = rest
	turn := rng.pickSeat(r)
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) == nil {
			continue
		}
		out.SendTo(i, CarboGameStarted{Turn: turn, Cards: hands[i]})
	}
}

func applyCarbo(r *Room, ev GameServerEvent, slot uint8) {
	c := &r.Carbo
	switch e := ev.(type) {
	case CarboGameStarted:
		r.State = StateInGame
		c.State = CarboPlaying
		c.Turn = e.Turn
		c.Top = EmptyCard
		c.Winner = NoSlot
		c.DeckLen = uint8(StandardDeck.Len() - carboHandSize*r.NumPlayers())
		for i := uint8(0); i < MaxPlayers; i++ {
			if p := r.Player(i); p != nil {
				p.Carbo.NumCards = uint8(e.Cards.Len())
				p.Carbo.VisibleCards = 0
			}
		}
		if p := r.Player(slot); p != nil {
			p.Carbo.Hand = e.Cards
		}

	case CarboCardPlayed:
		p := r.Player(e.Player)
		if p == nil {
			return
		}
		p.Carbo.Hand &^= e.Card
		p.Carbo.VisibleCards |= e.Card
		if p.Carbo.NumCards > 0 {
			p.Carbo.NumCards--
		}
		c.Top = e.Card.Nth(0)
		if p.Carbo.NumCards == 0 {
			endCarboRound(r, e.Player)
			return
		}
		c.Turn = nextCarboTurn(r, e.Player)

	case CarboCardDrawn:
		if p := r.Player(slot); p != nil {
			p.Carbo.Hand |= e.Card
		}

	case CarboDrew:
		p := r.Player(e.Player)
		if p == nil {
			return
		}
		if e.Drawn {
			p.Carbo.NumCards++
			if c.DeckLen > 0 {
				c.DeckLen--
			}
		}
		c.Turn = nextCarboTurn(r, e.Player)
	}
}

func carboLeft(r *Room, slot uint8) {
	c := &r.Carbo
	if c.State != CarboPlaying {
		return
	}
	if carboInRound(r) < 2 {
		endCarboRound(r, r.nextSeat(slot, carboDealtIn))
		return
	}
	if c.Turn == slot {
		c.Turn = nextCarboTurn(r, slot)
	}
}

func endCarboRound(r *Room, winner uint8) {
	c := &r.Carbo
	c.State = CarboLobby
	c.Winner = winner
	c.Turn = NoSlot
	c.Deck = 0
	c.DeckLen = 0
	for i := range r.Players {
		r.Players[i].Carbo.Hand = 0
		r.Players[i].Carbo.NumCards = 0
	}
	r.State = StateLobby
}

// carboDealtIn reports whether p holds cards in the running round. A round
// ends as soon as a hand empties, so players seated after the deal are the
// only ones with none.
func carboDealtIn(p *Player) bool { return p != nil && p.Carbo.NumCards > 0 }

func carboInRound(r *Room) int {
	n := 0
	for i := range r.Players {
		if r.Players[i].Present && carboDealtIn(&r.Players[i]) {
			n++
		}
	}
	return n
}

func nextCarboTurn(r *Room, from uint8) uint8 {
	return r.nextSeat(from, carboDealtIn)
}
