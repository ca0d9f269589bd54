// Package wire converts engine events to and from their binary form.
//
// Every message is one CBOR array [kind, body]. Bodies are the engine
// structs, encoded as arrays via their toarray tags, so the layout is
// positional like the fixed-width structs it carries.
package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/TylerMG2/card-games/engine"
)

// Size limits applied before any decoding.
const (
	MinMessageSize = 1
	MaxMessageSize = 1000
)

var (
	ErrTooShort    = errors.New("wire: message too short")
	ErrTooLong     = errors.New("wire: message too long")
	ErrUnknownKind = errors.New("wire: unknown event kind")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 512,
		MaxNestedLevels:  16,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

type envelope struct {
	_    struct{} `cbor:",toarray"`
	Kind uint8
	Body any
}

type rawEnvelope struct {
	_    struct{} `cbor:",toarray"`
	Kind uint8
	Body cbor.RawMessage
}

func encode(kind uint8, body any) ([]byte, error) {
	b, err := encMode.Marshal(envelope{Kind: kind, Body: body})
	if err != nil {
		return nil, fmt.Errorf("wire: encode kind %d: %w", kind, err)
	}
	return b, nil
}

func open(data []byte) (rawEnvelope, error) {
	var raw rawEnvelope
	switch {
	case len(data) < MinMessageSize:
		return raw, ErrTooShort
	case len(data) > MaxMessageSize:
		return raw, ErrTooLong
	}
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("wire: decode envelope: %w", err)
	}
	return raw, nil
}

func body[T any](b []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Client events
// ---------------------------------------------------------------------------

type clientDecoder func([]byte) (engine.ClientEvent, error)

func decodeClient[T engine.ClientEvent](b []byte) (engine.ClientEvent, error) {
	return body[T](b)
}

var clientDecoders = map[engine.ClientKind]clientDecoder{
	engine.ClientJoinRoom:             decodeClient[engine.JoinRoom],
	engine.ClientLeaveRoom:            decodeClient[engine.LeaveRoom],
	engine.ClientChangeGame:           decodeClient[engine.ChangeGame],
	engine.ClientDisconnect:           decodeClient[engine.Disconnect],
	engine.ClientStartGame:            decodeClient[engine.StartGame],
	engine.ClientResetGame:            decodeClient[engine.ResetGame],
	engine.ClientTycoonPlayCards:      decodeClient[engine.TycoonPlayCards],
	engine.ClientTycoonPass:           decodeClient[engine.TycoonPass],
	engine.ClientTycoonExchangeCards:  decodeClient[engine.TycoonExchangeCards],
	engine.ClientCarboPlayCard:        decodeClient[engine.CarboPlayCard],
	engine.ClientCarboDraw:            decodeClient[engine.CarboDraw],
	engine.ClientCoupAction:           decodeClient[engine.CoupAction],
	engine.ClientCoupCounteraction:    decodeClient[engine.CoupCounteraction],
	engine.ClientCoupChallenge:        decodeClient[engine.CoupChallenge],
	engine.ClientCoupResolveChallenge: decodeClient[engine.CoupResolveChallenge],
	engine.ClientCoupRevealCard:       decodeClient[engine.CoupRevealCard],
	engine.ClientCoupAccept:           decodeClient[engine.CoupAccept],
}

// EncodeClient encodes a client event.
func EncodeClient(ev engine.ClientEvent) ([]byte, error) {
	return encode(uint8(ev.ClientKind()), ev)
}

// DecodeClient decodes one inbound message. Anything that cannot be decoded
// comes back as engine.Unknown together with the reason.
func DecodeClient(data []byte) (engine.ClientEvent, error) {
	raw, err := open(data)
	if err != nil {
		return engine.Unknown{}, err
	}
	dec, ok := clientDecoders[engine.ClientKind(raw.Kind)]
	if !ok {
		return engine.Unknown{}, fmt.Errorf("%w: client %d", ErrUnknownKind, raw.Kind)
	}
	ev, err := dec(raw.Body)
	if err != nil {
		return engine.Unknown{}, fmt.Errorf("wire: decode client %d: %w", raw.Kind, err)
	}
	return ev, nil
}

// ---------------------------------------------------------------------------
// Server events
// ---------------------------------------------------------------------------

type serverDecoder func([]byte) (engine.ServerEvent, error)

func decodeServer[T engine.ServerEvent](b []byte) (engine.ServerEvent, error) {
	return body[T](b)
}

var serverDecoders = map[engine.ServerKind]serverDecoder{
	engine.ServerRoomJoined:            decodeServer[engine.RoomJoined],
	engine.ServerPlayerJoined:          decodeServer[engine.PlayerJoined],
	engine.ServerPlayerLeft:            decodeServer[engine.PlayerLeft],
	engine.ServerPlayerDisconnected:    decodeServer[engine.PlayerDisconnected],
	engine.ServerPlayerReconnected:     decodeServer[engine.PlayerReconnected],
	engine.ServerHostChanged:           decodeServer[engine.HostChanged],
	engine.ServerGameChanged:           decodeServer[engine.GameChanged],
	engine.ServerGameReset:             decodeServer[engine.GameReset],
	engine.ServerTycoonGameStarted:     decodeServer[engine.TycoonGameStarted],
	engine.ServerTycoonCardsPlayed:     decodeServer[engine.TycoonCardsPlayed],
	engine.ServerTycoonPassed:          decodeServer[engine.TycoonPassed],
	engine.ServerTycoonReceiveCards:    decodeServer[engine.TycoonReceiveCards],
	engine.ServerTycoonCardsExchanged:  decodeServer[engine.TycoonCardsExchanged],
	engine.ServerCarboGameStarted:      decodeServer[engine.CarboGameStarted],
	engine.ServerCarboCardPlayed:       decodeServer[engine.CarboCardPlayed],
	engine.ServerCarboCardDrawn:        decodeServer[engine.CarboCardDrawn],
	engine.ServerCarboDrew:             decodeServer[engine.CarboDrew],
	engine.ServerCoupGameStarted:       decodeServer[engine.CoupGameStarted],
	engine.ServerCoupActionTaken:       decodeServer[engine.CoupActionTaken],
	engine.ServerCoupCountered:         decodeServer[engine.CoupCountered],
	engine.ServerCoupChallenged:        decodeServer[engine.CoupChallenged],
	engine.ServerCoupChallengeRevealed: decodeServer[engine.CoupChallengeRevealed],
	engine.ServerCoupCardRevealed:      decodeServer[engine.CoupCardRevealed],
	engine.ServerCoupAccepted:          decodeServer[engine.CoupAccepted],
	engine.ServerCoupCardsExchanged:    decodeServer[engine.CoupCardsExchanged],
}

// EncodeServer encodes a server event.
func EncodeServer(ev engine.ServerEvent) ([]byte, error) {
	return encode(uint8(ev.ServerKind()), ev)
}

// DecodeServer is the client-side counterpart of DecodeClient. RoomJoined
// carries a whole room, so it is not subject to MaxMessageSize.
func DecodeServer(data []byte) (engine.ServerEvent, error) {
	if len(data) < MinMessageSize {
		return engine.Unknown{}, ErrTooShort
	}
	var raw rawEnvelope
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return engine.Unknown{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	dec, ok := serverDecoders[engine.ServerKind(raw.Kind)]
	if !ok {
		return engine.Unknown{}, fmt.Errorf("%w: server %d", ErrUnknownKind, raw.Kind)
	}
	ev, err := dec(raw.Body)
	if err != nil {
		return engine.Unknown{}, fmt.Errorf("wire: decode server %d: %w", raw.Kind, err)
	}
	return ev, nil
}
