// Package session runs one client connection against a room: admission, the
// name handshake, the read loop and the writer draining the outbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/TylerMG2/card-games/engine"
	"github.com/TylerMG2/card-games/engine/wire"
	"github.com/TylerMG2/card-games/internal/room"
)

var (
	ErrNameTimeout  = errors.New("no name received in time")
	ErrLeft         = errors.New("player left the room")
	ErrDisconnected = errors.New("player disconnected")
	ErrDecodeLimit  = errors.New("too many undecodable messages")
	// ErrDropped means the room closed the outbox. It wraps the outbox's
	// reason: room.ErrOutboxFull or room.ErrReplaced.
	ErrDropped = errors.New("connection dropped by the room")
)

// Transport is one message-oriented client stream.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, msg []byte) error
}

type Options struct {
	NameTimeout     time.Duration
	OutboxSize      int
	MaxDecodeErrors int
	WriteTimeout    time.Duration
	Log             logrus.FieldLogger
}

func (o *Options) defaults() {
	if o.NameTimeout <= 0 {
		o.NameTimeout = 300 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.MaxDecodeErrors <= 0 {
		o.MaxDecodeErrors = 3
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
}

type session struct {
	dir   *room.Directory
	code  string
	t     Transport
	opts  Options
	log   logrus.FieldLogger
	slot  uint8
	out   *room.Outbox
	named bool
}

// Serve admits id to the room code and runs the connection until it ends.
// It returns room.ErrRoomFull without touching t when no slot is free, and
// otherwise the reason the connection ended.
func Serve(ctx context.Context, dir *room.Directory, code string, id uuid.UUID, t Transport, opts Options) error {
	opts.defaults()
	out := room.NewOutbox(opts.OutboxSize)
	adm, err := dir.Join(code, id, out)
	if err != nil {
		return err
	}

	s := &session{
		dir:   dir,
		code:  code,
		t:     t,
		opts:  opts,
		slot:  adm.Slot,
		out:   out,
		named: adm.Reconnect,
		log:   opts.Log.WithFields(logrus.Fields{"room": code, "slot": adm.Slot, "player": id}),
	}
	if adm.Reconnect {
		s.log.Info("player reconnected")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error { return s.readLoop(gctx) })
	err = g.Wait()

	s.teardown(err)
	return err
}

func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-s.out.C():
			wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := s.t.Write(wctx, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-s.out.Done():
			return s.dropped()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	if !s.named {
		if err := s.awaitName(ctx); err != nil {
			return err
		}
	}
	failures := 0
	for {
		ev, err := s.next(ctx, &failures)
		if err != nil {
			return err
		}
		if err := s.process(ev); err != nil {
			return err
		}
	}
}

// awaitName reads until an accepted JoinRoom. The deadline covers the whole
// handshake and is not reset by other traffic.
func (s *session) awaitName(ctx context.Context) error {
	nctx, cancel := context.WithTimeout(ctx, s.opts.NameTimeout)
	defer cancel()
	failures := 0
	for !s.named {
		ev, err := s.next(nctx, &failures)
		if err != nil {
			if ctx.Err() == nil && errors.Is(nctx.Err(), context.DeadlineExceeded) {
				return ErrNameTimeout
			}
			return err
		}
		if _, ok := ev.(engine.JoinRoom); !ok {
			s.log.WithField("kind", ev.ClientKind()).Debug("ignoring event before JoinRoom")
			continue
		}
		if err := s.process(ev); err != nil {
			return err
		}
	}
	return nil
}

// next reads and decodes one client event. Consecutive undecodable messages
// are counted in failures.
func (s *session) next(ctx context.Context, failures *int) (engine.ClientEvent, error) {
	for {
		data, err := s.t.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		ev, err := wire.DecodeClient(data)
		if err == nil {
			*failures = 0
			return ev, nil
		}
		if errors.Is(err, wire.ErrTooShort) || errors.Is(err, wire.ErrTooLong) {
			s.log.WithField("size", len(data)).Debug("dropping message outside size bounds")
			continue
		}
		*failures++
		s.log.WithError(err).WithField("failures", *failures).Debug("dropping undecodable message")
		if *failures >= s.opts.MaxDecodeErrors {
			return nil, ErrDecodeLimit
		}
	}
}

func (s *session) process(ev engine.ClientEvent) error {
	var (
		outcome  engine.Outcome
		accepted bool
		stale    bool
	)
	found := s.dir.Do(s.code, func(r *room.Room) {
		if !r.Owns(s.slot, s.out) {
			stale = true
			return
		}
		outcome, accepted = r.Process(s.slot, ev)
	})
	if !found || stale {
		return s.dropped()
	}
	if !accepted {
		s.log.WithField("kind", ev.ClientKind()).Debug("rejected event")
		return nil
	}
	switch outcome {
	case engine.OutcomeJoined:
		s.named = true
		s.log.WithField("name", ev.(engine.JoinRoom).Name.String()).Info("player joined")
	case engine.OutcomeLeft:
		return ErrLeft
	case engine.OutcomeDisconnect:
		return ErrDisconnected
	}
	return nil
}

// dropped explains why the room took the connection away.
func (s *session) dropped() error {
	if err := s.out.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDropped, err)
	}
	return ErrDropped
}

// teardown releases or detaches the slot and drops the room once nobody is
// connected to it.
func (s *session) teardown(cause error) {
	s.dir.Do(s.code, func(r *room.Room) {
		switch {
		case errors.Is(cause, ErrLeft):
			r.Leave(s.slot, s.out)
		case !s.named:
			r.Abandon(s.slot, s.out)
		default:
			r.Disconnect(s.slot, s.out)
		}
	})
	s.out.Close()

	entry := s.log.WithField("cause", cause)
	switch {
	case errors.Is(cause, ErrLeft):
		entry.Info("player left")
	case s.named:
		entry.Info("player disconnected")
	default:
		entry.Debug("connection closed before joining")
	}
	s.dir.RemoveIfEmpty(s.code)
}
