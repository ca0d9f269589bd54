package engine

import "math/bits"

// Suit constants, packed into the upper 4 bits of Card.
const (
	SuitHearts     uint8 = 0
	SuitDiamonds   uint8 = 1
	SuitClubs      uint8 = 2
	SuitSpades     uint8 = 3
	SuitRedJoker   uint8 = 4
	SuitBlackJoker uint8 = 5
)

// Rank constants, packed into the lower 4 bits of Card.
const (
	RankAce   uint8 = 0
	RankTwo   uint8 = 1
	RankThree uint8 = 2
	RankFour  uint8 = 3
	RankFive  uint8 = 4
	RankSix   uint8 = 5
	RankSeven uint8 = 6
	RankEight uint8 = 7
	RankNine  uint8 = 8
	RankTen   uint8 = 9
	RankJack  uint8 = 10
	RankQueen uint8 = 11
	RankKing  uint8 = 12
	RankJoker uint8 = 13
)

// DeckSize is 52 standard cards plus two jokers.
const DeckSize = 54

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// IsJoker reports whether c is one of the two jokers.
func (c Card) IsJoker() bool { return c != EmptyCard && c.Rank() == RankJoker }

// Index returns the bit position of c inside a CardSet.
// Standard cards occupy bits 0-51 (rank*4 + suit), jokers bits 52 and 53.
func (c Card) Index() uint8 {
	if c.IsJoker() {
		return 52 + (c.Suit()-SuitRedJoker)&1
	}
	return c.Rank()*4 + c.Suit()
}

// CardAt is the inverse of Card.Index.
func CardAt(idx uint8) Card {
	switch {
	case idx == 52:
		return NewCard(SuitRedJoker, RankJoker)
	case idx == 53:
		return NewCard(SuitBlackJoker, RankJoker)
	case idx < 52:
		return NewCard(idx%4, idx/4)
	}
	return EmptyCard
}

// ---------------------------------------------------------------------------
// CardSet
// ---------------------------------------------------------------------------

// CardSet is a hand, a trick or a deck packed into one word. Bit i is set
// when CardAt(i) is in the set.
type CardSet uint64

const (
	// JokerMask selects both jokers.
	JokerMask CardSet = 3 << 52
	// FullDeck holds every card including jokers.
	FullDeck CardSet = 1<<DeckSize - 1
	// StandardDeck holds the 52 cards without jokers.
	StandardDeck = FullDeck &^ JokerMask
)

// SetOf builds a CardSet from individual cards. EmptyCard is ignored.
func SetOf(cards ...Card) CardSet {
	var s CardSet
	for _, c := range cards {
		s = s.With(c)
	}
	return s
}

// RankMask selects the four suits of rank.
func RankMask(rank uint8) CardSet {
	if rank >= RankJoker {
		return JokerMask
	}
	return CardSet(0xF) << (rank * 4)
}

// With returns s plus c.
func (s CardSet) With(c Card) CardSet {
	if c == EmptyCard {
		return s
	}
	return s | 1<<c.Index()
}

// Has reports whether c is in s.
func (s CardSet) Has(c Card) bool {
	return c != EmptyCard && s&(1<<c.Index()) != 0
}

// Contains reports whether every card of o is also in s.
func (s CardSet) Contains(o CardSet) bool { return s&o == o }

// Len returns the number of cards in s.
func (s CardSet) Len() int { return bits.OnesCount64(uint64(s)) }

// Jokers returns the number of jokers in s.
func (s CardSet) Jokers() int { return (s & JokerMask).Len() }

// Cards lists the cards of s in index order.
func (s CardSet) Cards() []Card {
	out := make([]Card, 0, s.Len())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		out = append(out, CardAt(uint8(bits.TrailingZeros64(rest))))
	}
	return out
}

// Nth returns the n-th card of s in index order, or EmptyCard when n is out
// of range.
func (s CardSet) Nth(n int) Card {
	rest := uint64(s)
	for ; rest != 0; rest &= rest - 1 {
		if n == 0 {
			return CardAt(uint8(bits.TrailingZeros64(rest)))
		}
		n--
	}
	return EmptyCard
}
