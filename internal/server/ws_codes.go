package server

import (
	"context"
	"errors"

	"github.com/coder/websocket"

	"github.com/TylerMG2/card-games/internal/room"
	"github.com/TylerMG2/card-games/internal/session"
)

// Application close codes sent to clients.
const (
	StatusInvalidRoomCode websocket.StatusCode = 3000 + iota
	StatusInvalidPlayerID
	StatusRoomFull
	StatusNameTimeout
	StatusReplaced
	StatusOutboxFull
)

// closeStatus maps the reason a session ended to the close frame sent.
func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, session.ErrLeft), errors.Is(err, session.ErrDisconnected):
		return websocket.StatusNormalClosure, ""
	case errors.Is(err, room.ErrRoomFull):
		return StatusRoomFull, "room is full"
	case errors.Is(err, session.ErrNameTimeout):
		return StatusNameTimeout, "no name received in time"
	case errors.Is(err, session.ErrDecodeLimit):
		return websocket.StatusPolicyViolation, "too many malformed messages"
	case errors.Is(err, room.ErrOutboxFull):
		return StatusOutboxFull, "too far behind"
	case errors.Is(err, session.ErrDropped):
		return StatusReplaced, "connection replaced"
	case errors.Is(err, context.Canceled):
		return websocket.StatusGoingAway, "server shutting down"
	}
	return websocket.StatusInternalError, ""
}
