package engine

// ClientKind tags a client event on the wire.
type ClientKind uint8

// Client event kinds. The order is part of the wire format: append only.
const (
	ClientUnknown ClientKind = iota
	ClientJoinRoom
	ClientLeaveRoom
	ClientChangeGame
	ClientDisconnect
	ClientStartGame
	ClientResetGame
	ClientTycoonPlayCards
	ClientTycoonPass
	ClientTycoonExchangeCards
	ClientCarboPlayCard
	ClientCarboDraw
	ClientCoupAction
	ClientCoupCounteraction
	ClientCoupChallenge
	ClientCoupResolveChallenge
	ClientCoupRevealCard
	ClientCoupAccept

	NumClientKinds
)

// ServerKind tags a server event on the wire.
type ServerKind uint8

// Server event kinds. The order is part of the wire format: append only.
const (
	ServerUnknown ServerKind = iota
	ServerRoomJoined
	ServerPlayerJoined
	ServerPlayerLeft
	ServerPlayerDisconnected
	ServerPlayerReconnected
	ServerHostChanged
	ServerGameChanged
	ServerGameReset
	ServerTycoonGameStarted
	ServerTycoonCardsPlayed
	ServerTycoonPassed
	ServerTycoonReceiveCards
	ServerTycoonCardsExchanged
	ServerCarboGameStarted
	ServerCarboCardPlayed
	ServerCarboCardDrawn
	ServerCarboDrew
	ServerCoupGameStarted
	ServerCoupActionTaken
	ServerCoupCountered
	ServerCoupChallenged
	ServerCoupChallengeRevealed
	ServerCoupCardRevealed
	ServerCoupAccepted
	ServerCoupCardsExchanged

	NumServerKinds
)

// ClientEvent is an inbound, untrusted event.
type ClientEvent interface {
	ClientKind() ClientKind
}

// ServerEvent is an outbound event, replicated identically to every copy of
// the room that receives it.
type ServerEvent interface {
	ServerKind() ServerKind
}

// GameClientEvent is a client event that belongs to one game.
type GameClientEvent interface {
	ClientEvent
	GameType() GameType
}

// GameServerEvent is a server event that belongs to one game.
type GameServerEvent interface {
	ServerEvent
	GameType() GameType
}

// Unknown is what undecodable bytes become, in either direction.
type Unknown struct{}

func (Unknown) ClientKind() ClientKind { return ClientUnknown }
func (Unknown) ServerKind() ServerKind { return ServerUnknown }

// ---------------------------------------------------------------------------
// Common client events
// ---------------------------------------------------------------------------

// JoinRoom names the sender's freshly assigned seat.
type JoinRoom struct {
	_    struct{} `cbor:",toarray"`
	Name Name
}

// LeaveRoom gives the seat up for good.
type LeaveRoom struct{}

// ChangeGame asks to switch the room to another game (host, lobby only).
type ChangeGame struct {
	_    struct{} `cbor:",toarray"`
	Game GameType
}

// Disconnect announces the client is going away but keeps its seat.
type Disconnect struct{}

// StartGame deals the active game (host, lobby only).
type StartGame struct{}

// ResetGame abandons the current game and returns to the lobby (host only).
type ResetGame struct{}

func (JoinRoom) ClientKind() ClientKind   { return ClientJoinRoom }
func (LeaveRoom) ClientKind() ClientKind  { return ClientLeaveRoom }
func (ChangeGame) ClientKind() ClientKind { return ClientChangeGame }
func (Disconnect) ClientKind() ClientKind { return ClientDisconnect }
func (StartGame) ClientKind() ClientKind  { return ClientStartGame }
func (ResetGame) ClientKind() ClientKind  { return ClientResetGame }

// ---------------------------------------------------------------------------
// Common server events
// ---------------------------------------------------------------------------

// RoomJoined carries a full snapshot and the recipient's own slot. Only a
// client replica applies it, by replacing its whole room.
type RoomJoined struct {
	_    struct{} `cbor:",toarray"`
	Room Room
	Slot uint8
}

type PlayerJoined struct {
	_    struct{} `cbor:",toarray"`
	Name Name
	Slot uint8
}

type PlayerLeft struct {
	_    struct{} `cbor:",toarray"`
	Slot uint8
}

type PlayerDisconnected struct {
	_    struct{} `cbor:",toarray"`
	Slot uint8
}

type PlayerReconnected struct {
	_    struct{} `cbor:",toarray"`
	Slot uint8
}

type HostChanged struct {
	_    struct{} `cbor:",toarray"`
	Slot uint8
}

type GameChanged struct {
	_    struct{} `cbor:",toarray"`
	Game GameType
}

// GameReset returns the room to the lobby with fresh game payloads.
type GameReset struct{}

func (RoomJoined) ServerKind() ServerKind         { return ServerRoomJoined }
func (PlayerJoined) ServerKind() ServerKind       { return ServerPlayerJoined }
func (PlayerLeft) ServerKind() ServerKind         { return ServerPlayerLeft }
func (PlayerDisconnected) ServerKind() ServerKind { return ServerPlayerDisconnected }
func (PlayerReconnected) ServerKind() ServerKind  { return ServerPlayerReconnected }
func (HostChanged) ServerKind() ServerKind        { return ServerHostChanged }
func (GameChanged) ServerKind() ServerKind        { return ServerGameChanged }
func (GameReset) ServerKind() ServerKind          { return ServerGameReset }
