package engine

// TycoonState is the phase of a Tycoon round.
type TycoonState uint8

const (
	TycoonLobby TycoonState = iota
	TycoonCardExchange
	TycoonPlaying
)

// TycoonRoom is the shared Tycoon (Daifugō) state.
type TycoonRoom struct {
	_                struct{} `cbor:",toarray"`
	State            TycoonState
	Turn             uint8
	LastPlayed       CardSet // cards on top of the current trick, 0 when leading
	LastPlayedPlayer uint8
	Revolution       bool
	Passes           uint8 // consecutive passes since LastPlayed

	Finished    [MaxPlayers]uint8 // slots in the order they emptied their hand
	NumFinished uint8
	Ranking     [MaxPlayers]uint8 // Finished of the previous round
	NumRanked   uint8

	Owed    [MaxPlayers]uint8 // cards each slot still hands over during CardExchange
	Partner [MaxPlayers]uint8 // who receives them
}

// TycoonPlayer is one seat's Tycoon state. Hand is only known to its owner
// and the server; NumCards is public.
type TycoonPlayer struct {
	_        struct{} `cbor:",toarray"`
	Hand     CardSet
	NumCards uint8
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// TycoonPlayCards plays one rank (jokers wild) on the current trick.
type TycoonPlayCards struct {
	_     struct{} `cbor:",toarray"`
	Cards CardSet
}

type TycoonPass struct{}

// TycoonExchangeCards hands the owed cards to the exchange partner.
type TycoonExchangeCards struct {
	_     struct{} `cbor:",toarray"`
	Cards CardSet
}

// TycoonGameStarted is sent to every seat with its own hand.
type TycoonGameStarted struct {
	_          struct{} `cbor:",toarray"`
	Turn       uint8
	Cards      CardSet
	OtherHands [MaxPlayers]uint8
}

// TycoonCardsPlayed is a play by the player whose turn it is.
type TycoonCardsPlayed struct {
	_     struct{} `cbor:",toarray"`
	Cards CardSet
}

type TycoonPassed struct{}

// TycoonReceiveCards swaps Returned for Cards in the recipient's hand.
type TycoonReceiveCards struct {
	_        struct{} `cbor:",toarray"`
	Cards    CardSet
	Returned CardSet
}

type TycoonCardsExchanged struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
}

func (TycoonPlayCards) ClientKind() ClientKind     { return ClientTycoonPlayCards }
func (TycoonPass) ClientKind() ClientKind          { return ClientTycoonPass }
func (TycoonExchangeCards) ClientKind() ClientKind { return ClientTycoonExchangeCards }
func (TycoonPlayCards) GameType() GameType         { return GameTycoon }
func (TycoonPass) GameType() GameType              { return GameTycoon }
func (TycoonExchangeCards) GameType() GameType     { return GameTycoon }

func (TycoonGameStarted) ServerKind() ServerKind    { return ServerTycoonGameStarted }
func (TycoonCardsPlayed) ServerKind() ServerKind    { return ServerTycoonCardsPlayed }
func (TycoonPassed) ServerKind() ServerKind         { return ServerTycoonPassed }
func (TycoonReceiveCards) ServerKind() ServerKind   { return ServerTycoonReceiveCards }
func (TycoonCardsExchanged) ServerKind() ServerKind { return ServerTycoonCardsExchanged }
func (TycoonGameStarted) GameType() GameType        { return GameTycoon }
func (TycoonCardsPlayed) GameType() GameType        { return GameTycoon }
func (TycoonPassed) GameType() GameType             { return GameTycoon }
func (TycoonReceiveCards) GameType() GameType       { return GameTycoon }
func (TycoonCardsExchanged) GameType() GameType     { return GameTycoon }

// ---------------------------------------------------------------------------
// Card strength
// ---------------------------------------------------------------------------

const tycoonJoker = 13

// tycoonStrength orders ranks Three (0) through Two (12), then Joker (13).
func tycoonStrength(rank uint8) int {
	if rank >= RankJoker {
		return tycoonJoker
	}
	return int((rank + 13 - RankThree) % 13)
}

// tycoonStrengthMask is the inverse of tycoonStrength over a CardSet.
func tycoonStrengthMask(s int) CardSet {
	if s >= tycoonJoker {
		return JokerMask
	}
	return RankMask(uint8((s + int(RankThree)) % 13))
}

// tycoonPlayStrength returns the strength of a play, or -1 when the
// non-joker cards do not share a rank.
func tycoonPlayStrength(cards CardSet) int {
	strength := -1
	for _, c := range cards.Cards() {
		if c.IsJoker() {
			continue
		}
		s := tycoonStrength(c.Rank())
		if strength >= 0 && s != strength {
			return -1
		}
		strength = s
	}
	if strength < 0 && cards.Jokers() > 0 {
		return tycoonJoker
	}
	return strength
}

// tycoonBeats reports whether a play of strength play tops prev. A
// revolution inverts the order; jokers stay on top either way.
func tycoonBeats(play, prev int, revolution bool) bool {
	if revolution && play != tycoonJoker && prev != tycoonJoker {
		return play < prev
	}
	return play > prev
}

// tycoonStrongest picks the n strongest cards of hand.
func tycoonStrongest(hand CardSet, n int) CardSet {
	var out CardSet
	for s := tycoonJoker; s >= 0 && n > 0; s-- {
		for _, c := range (hand & tycoonStrengthMask(s)).Cards() {
			if n == 0 {
				break
			}
			out = out.With(c)
			n--
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Plugin
// ---------------------------------------------------------------------------

func validateTycoon(r *Room, ev GameClientEvent, slot uint8) bool {
	t := &r.Tycoon
	p := r.Player(slot)
	switch e := ev.(type) {
	case TycoonPlayCards:
		if t.State != TycoonPlaying || t.Turn != slot {
			return false
		}
		if e.Cards == 0 || !p.Tycoon.Hand.Contains(e.Cards) {
			return false
		}
		s := tycoonPlayStrength(e.Cards)
		if s < 0 {
			return false
		}
		if t.LastPlayed == 0 {
			return true
		}
		return e.Cards.Len() == t.LastPlayed.Len() &&
			tycoonBeats(s, tycoonPlayStrength(t.LastPlayed), t.Revolution)
	case TycoonPass:
		return t.State == TycoonPlaying && t.Turn == slot && t.LastPlayed != 0
	case TycoonExchangeCards:
		return t.State == TycoonCardExchange && t.Owed[slot] > 0 &&
			e.Cards.Len() == int(t.Owed[slot]) && p.Tycoon.Hand.Contains(e.Cards)
	}
	return false
}

func handleTycoon(r *Room, ev GameClientEvent, slot uint8, out Emitter, _ *RNG) {
	switch e := ev.(type) {
	case TycoonPlayCards:
		out.Broadcast(TycoonCardsPlayed{Cards: e.Cards})
	case TycoonPass:
		out.Broadcast(TycoonPassed{})
	case TycoonExchangeCards:
		partner := r.Tycoon.Partner[slot]
		back := tycoonStrongest(r.Players[partner].Tycoon.Hand, e.Cards.Len())
		out.SendTo(slot, TycoonReceiveCards{Cards: back, Returned: e.Cards})
		out.SendTo(partner, TycoonReceiveCards{Cards: e.Cards, Returned: back})
		out.Broadcast(TycoonCardsExchanged{Player: slot})
	}
}

// startTycoon deals the whole deck and tells every seat its own hand.
func startTycoon(r *Room, out Emitter, rng *RNG) {
	hands, _ := rng.deal(r, FullDeck, 0)
	var counts [MaxPlayers]uint8
	for i, h := range hands {
		counts[i] = uint8(h.Len())
	}
	turn := tycoonOpener(r, hands)
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) == nil {
			continue
		}
		out.SendTo(i, TycoonGameStarted{Turn: turn, Cards: hands[i], OtherHands: counts})
	}
}

// tycoonOpener picks who leads: the last finisher of the previous round if
// still seated, otherwise the holder of the Three of Diamonds.
func tycoonOpener(r *Room, hands [MaxPlayers]CardSet) uint8 {
	t := &r.Tycoon
	if t.NumRanked > 0 {
		if last := t.Ranking[t.NumRanked-1]; r.Player(last) != nil {
			return last
		}
	}
	three := NewCard(SuitDiamonds, RankThree)
	for i, h := range hands {
		if h.Has(three) {
			return uint8(i)
		}
	}
	return r.nextSeat(MaxPlayers-1, func(*Player) bool { return true })
}

func applyTycoon(r *Room, ev GameServerEvent, slot uint8) {
	t := &r.Tycoon
	switch e := ev.(type) {
	case TycoonGameStarted:
		// Applied once per recipient on the server: every write here must
		// be idempotent apart from the recipient's own hand.
		r.State = StateInGame
		t.State = TycoonPlaying
		t.Turn = e.Turn
		t.LastPlayed = 0
		t.LastPlayedPlayer = NoSlot
		t.Revolution = false
		t.Passes = 0
		t.Finished = [MaxPlayers]uint8{}
		t.NumFinished = 0
		for i := uint8(0); i < MaxPlayers; i++ {
			if p := r.Player(i); p != nil {
				p.Tycoon.NumCards = e.OtherHands[i]
			}
		}
		if p := r.Player(slot); p != nil {
			p.Tycoon.Hand = e.Cards
		}
		setupTycoonExchange(r)

	case TycoonCardsPlayed:
		pl := t.Turn
		p := r.Player(pl)
		if p == nil {
			return
		}
		n := uint8(e.Cards.Len())
		p.Tycoon.Hand &^= e.Cards
		if p.Tycoon.NumCards > n {
			p.Tycoon.NumCards -= n
		} else {
			p.Tycoon.NumCards = 0
		}
		t.LastPlayed = e.Cards
		t.LastPlayedPlayer = pl
		t.Passes = 0
		if n >= 4 {
			t.Revolution = !t.Revolution
		}
		if p.Tycoon.NumCards == 0 {
			t.finish(pl)
		}
		if tycoonActive(r) <= 1 {
			endTycoonRound(r)
			return
		}
		t.Turn = nextTycoonTurn(r, pl)

	case TycoonPassed:
		next := nextTycoonTurn(r, t.Turn)
		t.Passes++
		need := tycoonActive(r)
		if tycoonHolding(r, t.LastPlayedPlayer) {
			need--
		}
		if int(t.Passes) >= need {
			// Everyone passed: the trick is won and cleared.
			t.LastPlayed = 0
			t.Passes = 0
			if tycoonHolding(r, t.LastPlayedPlayer) {
				next = t.LastPlayedPlayer
			} else {
				next = nextTycoonTurn(r, t.LastPlayedPlayer)
			}
		}
		t.Turn = next

	case TycoonReceiveCards:
		if p := r.Player(slot); p != nil {
			p.Tycoon.Hand = p.Tycoon.Hand&^e.Returned | e.Cards
		}

	case TycoonCardsExchanged:
		if e.Player < MaxPlayers {
			t.Owed[e.Player] = 0
		}
		if t.State == TycoonCardExchange && t.Owed == [MaxPlayers]uint8{} {
			t.State = TycoonPlaying
		}
	}
}

// setupTycoonExchange derives the exchange duties from the previous
// round's ranking: first place owes last place two cards and, with four or
// more finishers, second place owes second-to-last one.
func setupTycoonExchange(r *Room) {
	t := &r.Tycoon
	t.Owed = [MaxPlayers]uint8{}
	t.Partner = [MaxPlayers]uint8{}
	n := int(t.NumRanked)
	pairs := 0
	switch {
	case n >= 4:
		pairs = 2
	case n >= 2:
		pairs = 1
	}
	for k := 0; k < pairs; k++ {
		rich, poor := t.Ranking[k], t.Ranking[n-1-k]
		if r.Player(rich) == nil || r.Player(poor) == nil {
			continue
		}
		t.Owed[rich] = uint8(2 - k)
		t.Partner[rich] = poor
		t.State = TycoonCardExchange
	}
}

func tycoonLeft(r *Room, slot uint8) {
	t := &r.Tycoon
	if t.State == TycoonCardExchange {
		for i := range t.Owed {
			if uint8(i) == slot || (t.Owed[i] > 0 && t.Partner[i] == slot) {
				t.Owed[i] = 0
			}
		}
		if t.Owed == [MaxPlayers]uint8{} {
			t.State = TycoonPlaying
		}
	}
	if t.State == TycoonLobby {
		return
	}
	if tycoonActive(r) <= 1 {
		endTycoonRound(r)
		return
	}
	if t.Turn == slot {
		t.Turn = nextTycoonTurn(r, slot)
	}
}

// endTycoonRound ranks whoever still holds cards last and returns to the lobby.
func endTycoonRound(r *Room) {
	t := &r.Tycoon
	for i := uint8(0); i < MaxPlayers; i++ {
		if tycoonHolding(r, i) {
			t.finish(i)
		}
	}
	t.Ranking = t.Finished
	t.NumRanked = t.NumFinished
	t.Finished = [MaxPlayers]uint8{}
	t.NumFinished = 0
	t.State = TycoonLobby
	t.Turn = NoSlot
	t.LastPlayed = 0
	t.LastPlayedPlayer = NoSlot
	t.Passes = 0
	t.Revolution = false
	t.Owed = [MaxPlayers]uint8{}
	for i := range r.Players {
		r.Players[i].Tycoon = TycoonPlayer{}
	}
	r.State = StateLobby
}

func (t *TycoonRoom) finish(slot uint8) {
	if t.NumFinished < MaxPlayers {
		t.Finished[t.NumFinished] = slot
		t.NumFinished++
	}
}

func tycoonHolding(r *Room, slot uint8) bool {
	p := r.Player(slot)
	return p != nil && p.Tycoon.NumCards > 0
}

func tycoonActive(r *Room) int {
	n := 0
	for i := uint8(0); i < MaxPlayers; i++ {
		if tycoonHolding(r, i) {
			n++
		}
	}
	return n
}

func nextTycoonTurn(r *Room, from uint8) uint8 {
	return r.nextSeat(from, func(p *Player) bool { return p.Tycoon.NumCards > 0 })
}
