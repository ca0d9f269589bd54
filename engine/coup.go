package engine

// Role is an influence card in Coup.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleDuke
	RoleAssassin
	RoleCaptain
	RoleAmbassador
	RoleContessa
	numRoles
)

func (r Role) valid() bool { return r > RoleUnknown && r < numRoles }

// CoupDeckSize is three copies of every role.
const CoupDeckSize = 3 * int(numRoles-1)

const (
	coupStartCoins    = 2
	coupCoupCost      = 7
	coupAssassinCost  = 3
	coupForcedCoup    = 10
	coupStealAmount   = 2
	coupHandSize      = 2
	coupForeignAidSum = 2
	coupTaxSum        = 3
)

type CoupCard struct {
	_        struct{} `cbor:",toarray"`
	Role     Role
	Revealed bool
}

type CoupPlayer struct {
	_     struct{} `cbor:",toarray"`
	Coins uint8
	Cards [coupHandSize]CoupCard
}

// ActionType is what a player does on their turn.
type ActionType uint8

const (
	ActionNone ActionType = iota
	ActionIncome
	ActionForeignAid
	ActionCoup
	ActionTax
	ActionAssassinate
	ActionExchange
	ActionSteal
)

// PlayerAction is a declared action. Target is NoSlot for untargeted ones.
type PlayerAction struct {
	_      struct{} `cbor:",toarray"`
	Type   ActionType
	Target uint8
}

// CoupPhase tracks where the current turn is.
type CoupPhase uint8

const (
	CoupLobby       CoupPhase = iota
	CoupTurn                  // waiting for the turn player's action
	CoupResponse              // action declared, others may block, challenge or accept
	CoupBlock                 // a block was claimed, the actor may challenge or accept
	CoupChallenging           // the challenged player must show a card
	CoupReveal                // Loser must give up a card
)

// CoupNext is what happens once a forced reveal is done.
type CoupNext uint8

const (
	NextEndTurn CoupNext = iota
	NextResolve
)

// CoupRoom is the shared Coup state. The turn player is always the actor.
type CoupRoom struct {
	_            struct{} `cbor:",toarray"`
	Phase        CoupPhase
	Turn         uint8
	Deck         [CoupDeckSize]Role // server-held court deck, never replicated
	DeckLen      uint8
	Action       PlayerAction
	Blocker      uint8
	Claim        Role // role claimed by Blocker
	Challenger   uint8
	Accepted     uint8 // bit per slot
	Loser        uint8
	Next         CoupNext
	LastActor    uint8
	LastResolved PlayerAction
	Resolutions  uint16
	Winner       uint8
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

type CoupAction struct {
	_      struct{} `cbor:",toarray"`
	Action PlayerAction
}

// CoupCounteraction blocks the pending action by claiming Claim.
type CoupCounteraction struct {
	_     struct{} `cbor:",toarray"`
	Claim Role
}

// CoupChallenge disputes the pending claim (the action's, or the block's).
type CoupChallenge struct{}

// CoupResolveChallenge is the challenged player's answer: the card to show.
type CoupResolveChallenge struct {
	_    struct{} `cbor:",toarray"`
	Card uint8
}

// CoupRevealCard gives up a card after losing influence.
type CoupRevealCard struct {
	_    struct{} `cbor:",toarray"`
	Card uint8
}

// CoupAccept lets the pending action or block stand.
type CoupAccept struct{}

func (CoupAction) ClientKind() ClientKind           { return ClientCoupAction }
func (CoupCounteraction) ClientKind() ClientKind    { return ClientCoupCounteraction }
func (CoupChallenge) ClientKind() ClientKind        { return ClientCoupChallenge }
func (CoupResolveChallenge) ClientKind() ClientKind { return ClientCoupResolveChallenge }
func (CoupRevealCard) ClientKind() ClientKind       { return ClientCoupRevealCard }
func (CoupAccept) ClientKind() ClientKind           { return ClientCoupAccept }
func (CoupAction) GameType() GameType               { return GameCoup }
func (CoupCounteraction) GameType() GameType        { return GameCoup }
func (CoupChallenge) GameType() GameType            { return GameCoup }
func (CoupResolveChallenge) GameType() GameType     { return GameCoup }
func (CoupRevealCard) GameType() GameType           { return GameCoup }
func (CoupAccept) GameType() GameType               { return GameCoup }

// CoupGameStarted is sent to each player with only their own roles.
type CoupGameStarted struct {
	_     struct{} `cbor:",toarray"`
	Turn  uint8
	Cards [coupHandSize]Role
}

type CoupActionTaken struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Action PlayerAction
}

type CoupCountered struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Claim  Role
}

type CoupChallenged struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
}

// CoupChallengeRevealed shows the card the challenged player picked.
type CoupChallengeRevealed struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Card   uint8
	Role   Role
}

type CoupCardRevealed struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
	Card   uint8
	Role   Role
}

type CoupAccepted struct {
	_      struct{} `cbor:",toarray"`
	Player uint8
}

// CoupCardsExchanged privately tells a player its new hidden roles, after an
// Exchange or after a proven claim was shuffled back into the deck.
type CoupCardsExchanged struct {
	_     struct{} `cbor:",toarray"`
	Cards [coupHandSize]Role
}

func (CoupGameStarted) ServerKind() ServerKind       { return ServerCoupGameStarted }
func (CoupActionTaken) ServerKind() ServerKind       { return ServerCoupActionTaken }
func (CoupCountered) ServerKind() ServerKind         { return ServerCoupCountered }
func (CoupChallenged) ServerKind() ServerKind        { return ServerCoupChallenged }
func (CoupChallengeRevealed) ServerKind() ServerKind { return ServerCoupChallengeRevealed }
func (CoupCardRevealed) ServerKind() ServerKind      { return ServerCoupCardRevealed }
func (CoupAccepted) ServerKind() ServerKind          { return ServerCoupAccepted }
func (CoupCardsExchanged) ServerKind() ServerKind    { return ServerCoupCardsExchanged }
func (CoupGameStarted) GameType() GameType           { return GameCoup }
func (CoupActionTaken) GameType() GameType           { return GameCoup }
func (CoupCountered) GameType() GameType             { return GameCoup }
func (CoupChallenged) GameType() GameType            { return GameCoup }
func (CoupChallengeRevealed) GameType() GameType     { return GameCoup }
func (CoupCardRevealed) GameType() GameType          { return GameCoup }
func (CoupAccepted) GameType() GameType              { return GameCoup }
func (CoupCardsExchanged) GameType() GameType        { return GameCoup }

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func validateCoup(r *Room, ev GameClientEvent, slot uint8) bool {
	c := &r.Coup
	if c.Phase == CoupLobby || !coupAlive(r, slot) {
		return false
	}
	switch e := ev.(type) {
	case CoupAction:
		return c.Phase == CoupTurn && c.Turn == slot && coupActionLegal(r, slot, e.Action)
	case CoupCounteraction:
		return coupCanCounter(r, slot, e.Claim)
	case CoupChallenge:
		return coupCanChallenge(r, slot)
	case CoupAccept:
		return (c.Phase == CoupResponse || c.Phase == CoupBlock) &&
			coupResponders(r)&(1<<slot) != 0 && c.Accepted&(1<<slot) == 0
	case CoupResolveChallenge:
		return c.Phase == CoupChallenging && slot == c.challenged() && coupHidden(r, slot, e.Card)
	case CoupRevealCard:
		return c.Phase == CoupReveal && slot == c.Loser && coupHidden(r, slot, e.Card)
	}
	return false
}

func coupActionLegal(r *Room, slot uint8, a PlayerAction) bool {
	coins := r.Players[slot].Coup.Coins
	if coins >= coupForcedCoup && a.Type != ActionCoup {
		return false
	}
	switch a.Type {
	case ActionIncome, ActionForeignAid, ActionTax, ActionExchange:
		return true
	case ActionCoup:
		return coins >= coupCoupCost && coupTargetable(r, slot, a.Target)
	case ActionAssassinate:
		return coins >= coupAssassinCost && coupTargetable(r, slot, a.Target)
	case ActionSteal:
		return coupTargetable(r, slot, a.Target)
	}
	return false
}

func coupCanCounter(r *Room, slot uint8, claim Role) bool {
	c := &r.Coup
	if c.Phase != CoupResponse || slot == c.Turn {
		return false
	}
	switch c.Action.Type {
	case ActionForeignAid:
		return claim == RoleDuke
	case ActionSteal:
		return c.Action.Target == slot && (claim == RoleCaptain || claim == RoleAmbassador)
	case ActionAssassinate:
		return c.Action.Target == slot && claim == RoleContessa
	}
	return false
}

func coupCanChallenge(r *Room, slot uint8) bool {
	c := &r.Coup
	switch c.Phase {
	case CoupResponse:
		if slot == c.Turn {
			return false
		}
		switch c.Action.Type {
		case ActionTax, ActionExchange:
			return true
		case ActionSteal, ActionAssassinate:
			return c.Action.Target == slot
		}
	case CoupBlock:
		return slot == c.Turn
	}
	return false
}

// coupResponders returns the slots whose acceptance lets the pending action
// or block stand.
func coupResponders(r *Room) uint8 {
	c := &r.Coup
	if c.Phase == CoupBlock {
		if coupAlive(r, c.Turn) {
			return 1 << c.Turn
		}
		return 0
	}
	switch c.Action.Type {
	case ActionSteal, ActionAssassinate:
		if coupAlive(r, c.Action.Target) {
			return 1 << c.Action.Target
		}
		return 0
	}
	var mask uint8
	for i := uint8(0); i < MaxPlayers; i++ {
		if i != c.Turn && coupAlive(r, i) {
			mask |= 1 << i
		}
	}
	return mask
}

func coupTargetable(r *Room, slot, target uint8) bool {
	return target != slot && coupAlive(r, target)
}

func coupHidden(r *Room, slot, card uint8) bool {
	return card < coupHandSize && !r.Players[slot].Coup.Cards[card].Revealed
}

func coupAlivePlayer(p *Player) bool {
	for _, c := range p.Coup.Cards {
		if !c.Revealed {
			return true
		}
	}
	return false
}

func coupAlive(r *Room, slot uint8) bool {
	p := r.Player(slot)
	return p != nil && coupAlivePlayer(p)
}

func coupAliveCount(r *Room) int {
	n := 0
	for i := uint8(0); i < MaxPlayers; i++ {
		if coupAlive(r, i) {
			n++
		}
	}
	return n
}

// coupClaimFor returns the role an action claims, or RoleUnknown.
func coupClaimFor(a ActionType) Role {
	switch a {
	case ActionTax:
		return RoleDuke
	case ActionAssassinate:
		return RoleAssassin
	case ActionExchange:
		return RoleAmbassador
	case ActionSteal:
		return RoleCaptain
	}
	return RoleUnknown
}

func coupTargeted(a ActionType) bool {
	return a == ActionCoup || a == ActionAssassinate || a == ActionSteal
}

func (c *CoupRoom) challenged() uint8 {
	if c.Blocker != NoSlot {
		return c.Blocker
	}
	return c.Turn
}

// claimed returns the role under dispute.
func (c *CoupRoom) claimed() Role {
	if c.Blocker != NoSlot {
		return c.Claim
	}
	return coupClaimFor(c.Action.Type)
}

func (c *CoupRoom) clearAction() {
	c.Action = PlayerAction{Target: NoSlot}
	c.Blocker = NoSlot
	c.Claim = RoleUnknown
	c.Challenger = NoSlot
	c.Accepted = 0
	c.Loser = NoSlot
	c.Next = NextEndTurn
}

// ---------------------------------------------------------------------------
// Handling (server)
// ---------------------------------------------------------------------------

func handleCoup(r *Room, ev GameClientEvent, slot uint8, out Emitter, rng *RNG) {
	c := &r.Coup
	before := c.Resolutions
	switch e := ev.(type) {
	case CoupAction:
		a := e.Action
		if !coupTargeted(a.Type) {
			a.Target = NoSlot
		}
		out.Broadcast(CoupActionTaken{Player: slot, Action: a})
	case CoupCounteraction:
		out.Broadcast(CoupCountered{Player: slot, Claim: e.Claim})
	case CoupChallenge:
		out.Broadcast(CoupChallenged{Player: slot})
	case CoupAccept:
		out.Broadcast(CoupAccepted{Player: slot})
	case CoupResolveChallenge:
		claim := c.claimed()
		role := r.Players[slot].Coup.Cards[e.Card].Role
		out.Broadcast(CoupChallengeRevealed{Player: slot, Card: e.Card, Role: role})
		if role == claim {
			coupReplaceCard(r, slot, e.Card, role, out, rng)
		}
	case CoupRevealCard:
		role := r.Players[slot].Coup.Cards[e.Card].Role
		out.Broadcast(CoupCardRevealed{Player: slot, Card: e.Card, Role: role})
	}
	if c.Resolutions != before && c.LastResolved.Type == ActionExchange {
		coupExchange(r, c.LastActor, out, rng)
	}
}

func startCoup(r *Room, out Emitter, rng *RNG) {
	var deck [CoupDeckSize]Role
	for i := range deck {
		deck[i] = RoleDuke + Role(i/3)
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}

	n := CoupDeckSize
	var hands [MaxPlayers][coupHandSize]Role
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) == nil {
			continue
		}
		for k := range hands[i] {
			n--
			hands[i][k] = deck[n]
			deck[n] = RoleUnknown
		}
	}
	r.Coup.Deck = deck

	turn := rng.pickSeat(r)
	for i := uint8(0); i < MaxPlayers; i++ {
		if r.Player(i) == nil {
			continue
		}
		out.SendTo(i, CoupGameStarted{Turn: turn, Cards: hands[i]})
	}
}

// coupExchange swaps every hidden card of slot with the court deck.
func coupExchange(r *Room, slot uint8, out Emitter, rng *RNG) {
	p := r.Player(slot)
	if p == nil {
		return
	}
	var cards [coupHandSize]Role
	for i, card := range p.Coup.Cards {
		cards[i] = card.Role
		if card.Revealed {
			continue
		}
		r.Coup.pushDeck(card.Role)
		cards[i] = r.Coup.drawDeck(rng)
	}
	out.SendTo(slot, CoupCardsExchanged{Cards: cards})
}

// coupReplaceCard shuffles a proven role back into the deck and deals slot a
// fresh one in its place.
func coupReplaceCard(r *Room, slot, card uint8, role Role, out Emitter, rng *RNG) {
	p := r.Player(slot)
	if p == nil {
		return
	}
	var cards [coupHandSize]Role
	for i := range cards {
		cards[i] = p.Coup.Cards[i].Role
	}
	r.Coup.pushDeck(role)
	cards[card] = r.Coup.drawDeck(rng)
	out.SendTo(slot, CoupCardsExchanged{Cards: cards})
}

func (c *CoupRoom) pushDeck(role Role) {
	if int(c.DeckLen) >= CoupDeckSize {
		return
	}
	c.Deck[c.DeckLen] = role
	c.DeckLen++
}

func (c *CoupRoom) drawDeck(rng *RNG) Role {
	if c.DeckLen == 0 {
		return RoleUnknown
	}
	i := rng.Intn(int(c.DeckLen))
	last := c.DeckLen - 1
	role := c.Deck[i]
	c.Deck[i] = c.Deck[last]
	c.Deck[last] = RoleUnknown
	c.DeckLen--
	return role
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

func applyCoup(r *Room, ev GameServerEvent, slot uint8, origin bool) {
	c := &r.Coup
	switch e := ev.(type) {
	case CoupGameStarted:
		r.State = StateInGame
		c.Phase = CoupTurn
		c.Turn = e.Turn
		c.clearAction()
		c.Winner = NoSlot
		c.LastActor = NoSlot
		c.LastResolved = PlayerAction{Target: NoSlot}
		c.Resolutions = 0
		c.DeckLen = uint8(CoupDeckSize - coupHandSize*r.NumPlayers())
		for i := uint8(0); i < MaxPlayers; i++ {
			p := r.Player(i)
			if p == nil {
				continue
			}
			p.Coup.Coins = coupStartCoins
			for k := range p.Coup.Cards {
				p.Coup.Cards[k].Revealed = false
				if !origin && i != slot {
					p.Coup.Cards[k].Role = RoleUnknown
				}
			}
		}
		if p := r.Player(slot); p != nil {
			for k := range p.Coup.Cards {
				p.Coup.Cards[k].Role = e.Cards[k]
			}
		}

	case CoupActionTaken:
		p := r.Player(e.Player)
		if p == nil {
			return
		}
		c.clearAction()
		c.Action = e.Action
		switch e.Action.Type {
		case ActionIncome:
			p.Coup.Coins++
			c.resolved(e.Player, e.Action)
			coupEndTurn(r)
		case ActionCoup:
			p.Coup.Coins = subCoins(p.Coup.Coins, coupCoupCost)
			c.resolved(e.Player, e.Action)
			coupLoseInfluence(r, e.Action.Target, NextEndTurn)
		case ActionAssassinate:
			p.Coup.Coins = subCoins(p.Coup.Coins, coupAssassinCost)
			c.Phase = CoupResponse
		default:
			c.Phase = CoupResponse
		}

	case CoupCountered:
		c.Blocker = e.Player
		c.Claim = e.Claim
		c.Accepted = 0
		c.Phase = CoupBlock

	case CoupChallenged:
		c.Challenger = e.Player
		c.Phase = CoupChallenging

	case CoupAccepted:
		if e.Player < MaxPlayers {
			c.Accepted |= 1 << e.Player
		}
		need := coupResponders(r)
		if c.Accepted&need != need {
			return
		}
		if c.Phase == CoupBlock {
			coupEndTurn(r)
		} else {
			coupResolve(r)
		}

	case CoupChallengeRevealed:
		p := r.Player(e.Player)
		if p == nil || e.Card >= coupHandSize {
			return
		}
		blocked := c.Blocker != NoSlot
		card := &p.Coup.Cards[e.Card]
		if e.Role == c.claimed() {
			// The card goes back to the deck, the challenger pays.
			card.Role = RoleUnknown
			next := NextResolve
			if blocked {
				next = NextEndTurn
			}
			coupLoseInfluence(r, c.Challenger, next)
			return
		}
		card.Role = e.Role
		card.Revealed = true
		if blocked {
			coupResolve(r)
		} else {
			coupEndTurn(r)
		}

	case CoupCardRevealed:
		p := r.Player(e.Player)
		if p == nil || e.Card >= coupHandSize {
			return
		}
		p.Coup.Cards[e.Card] = CoupCard{Role: e.Role, Revealed: true}
		if c.Phase == CoupReveal && c.Loser == e.Player {
			c.Loser = NoSlot
			coupContinue(r, c.Next)
		}

	case CoupCardsExchanged:
		p := r.Player(slot)
		if p == nil {
			return
		}
		for k := range p.Coup.Cards {
			if !p.Coup.Cards[k].Revealed {
				p.Coup.Cards[k].Role = e.Cards[k]
			}
		}
	}
}

func (c *CoupRoom) resolved(actor uint8, a PlayerAction) {
	c.LastActor = actor
	c.LastResolved = a
	c.Resolutions++
}

// coupResolve carries out the pending action of the turn player.
func coupResolve(r *Room) {
	c := &r.Coup
	p := r.Player(c.Turn)
	if p == nil {
		coupEndTurn(r)
		return
	}
	a := c.Action
	c.resolved(c.Turn, a)
	switch a.Type {
	case ActionForeignAid:
		p.Coup.Coins += coupForeignAidSum
	case ActionTax:
		p.Coup.Coins += coupTaxSum
	case ActionSteal:
		if t := r.Player(a.Target); t != nil {
			n := min(t.Coup.Coins, coupStealAmount)
			t.Coup.Coins -= n
			p.Coup.Coins += n
		}
	case ActionAssassinate:
		coupLoseInfluence(r, a.Target, NextEndTurn)
		return
	}
	coupEndTurn(r)
}

// coupLoseInfluence makes slot give up a card, then continues with next.
// A player with no hidden card left is skipped.
func coupLoseInfluence(r *Room, slot uint8, next CoupNext) {
	c := &r.Coup
	if !coupAlive(r, slot) {
		coupContinue(r, next)
		return
	}
	c.Phase = CoupReveal
	c.Loser = slot
	c.Next = next
}

func coupContinue(r *Room, next CoupNext) {
	if next == NextResolve {
		coupResolve(r)
		return
	}
	coupEndTurn(r)
}

// coupEndTurn clears the pending action and passes the turn to the next
// living player, or ends the game when one player is left.
func coupEndTurn(r *Room) {
	c := &r.Coup
	actor := c.Turn
	c.clearAction()
	if coupAliveCount(r) <= 1 {
		coupFinish(r)
		return
	}
	c.Phase = CoupTurn
	c.Turn = r.nextSeat(actor, coupAlivePlayer)
}

func coupFinish(r *Room) {
	c := &r.Coup
	c.Winner = NoSlot
	for i := uint8(0); i < MaxPlayers; i++ {
		if coupAlive(r, i) {
			c.Winner = i
			break
		}
	}
	c.Phase = CoupLobby
	c.Turn = NoSlot
	c.Deck = [CoupDeckSize]Role{}
	c.DeckLen = 0
	r.State = StateLobby
}

// coupJoined turns both cards of a player seated mid-game face up, so they
// count as out until the next deal.
func coupJoined(r *Room, slot uint8) {
	cards := &r.Players[slot].Coup.Cards
	for k := range cards {
		cards[k].Revealed = true
	}
}

// coupLeft abandons whatever the turn was waiting on when a player leaves.
func coupLeft(r *Room, slot uint8) {
	c := &r.Coup
	if c.Phase == CoupLobby {
		return
	}
	if c.Phase != CoupTurn || c.Turn == slot || coupAliveCount(r) <= 1 {
		coupEndTurn(r)
	}
}

func subCoins(coins, n uint8) uint8 {
	if coins < n {
		return 0
	}
	return coins - n
}
