// Package cache appends every applied server event to a per-room redis list.
//
// Writes happen on a single worker goroutine fed by a bounded queue, so the
// room lock is never held across network I/O. When redis falls behind the
// queue fills and further entries are dropped.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/TylerMG2/card-games/internal/room"
)

const (
	writeTimeout = 2 * time.Second
	queueSize    = 1024
)

// Key is the redis list holding the journal of a room.
func Key(code string) string {
	return "room:" + code + ":events"
}

// Record is one journal entry as stored in redis. Payload is the event's
// wire envelope, embedded as is.
type Record struct {
	Seq     uint64          `cbor:"seq"`
	To      uint8           `cbor:"to"`
	Kind    uint8           `cbor:"kind"`
	At      int64           `cbor:"at"` // unix milliseconds
	Payload cbor.RawMessage `cbor:"payload"`
}

func encodeRecord(e room.Entry) ([]byte, error) {
	return cbor.Marshal(Record{
		Seq:     e.Seq,
		To:      e.To,
		Kind:    uint8(e.Kind),
		At:      e.At.UnixMilli(),
		Payload: e.Payload,
	})
}

// Options tunes the list kept per room.
type Options struct {
	TTL    time.Duration // expiry refreshed on every append, 0 keeps forever
	MaxLen int64         // newest entries kept, 0 keeps all
}

type writer interface {
	append(ctx context.Context, key string, rec []byte) error
}

type redisWriter struct {
	rdb  redis.Cmdable
	opts Options
}

func (w redisWriter) append(ctx context.Context, key string, rec []byte) error {
	_, err := w.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, rec)
		if w.opts.MaxLen > 0 {
			p.LTrim(ctx, key, -w.opts.MaxLen, -1)
		}
		if w.opts.TTL > 0 {
			p.Expire(ctx, key, w.opts.TTL)
		}
		return nil
	})
	return err
}

// Journal implements room.Journal on top of redis.
type Journal struct {
	w       writer
	log     logrus.FieldLogger
	queue   chan room.Entry
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewJournal starts the worker. Call Close to stop it.
func NewJournal(rdb redis.Cmdable, opts Options, log logrus.FieldLogger) *Journal {
	return newJournal(redisWriter{rdb: rdb, opts: opts}, queueSize, log)
}

func newJournal(w writer, size int, log logrus.FieldLogger) *Journal {
	j := &Journal{
		w:     w,
		log:   log,
		queue: make(chan room.Entry, size),
		stop:  make(chan struct{}),
	}
	j.wg.Add(1)
	go j.run()
	return j
}

// Record queues e without blocking.
func (j *Journal) Record(e room.Entry) {
	select {
	case <-j.stop:
		return
	default:
	}
	select {
	case j.queue <- e:
	default:
		n := j.dropped.Add(1)
		j.log.WithFields(logrus.Fields{"room": e.Room, "seq": e.Seq, "dropped": n}).
			Warn("journal queue full, dropping event")
	}
}

// Dropped counts entries lost to a full queue.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Close writes whatever is still queued and stops the worker.
func (j *Journal) Close() {
	j.once.Do(func() { close(j.stop) })
	j.wg.Wait()
}

func (j *Journal) run() {
	defer j.wg.Done()
	for {
		select {
		case e := <-j.queue:
			j.write(e)
		case <-j.stop:
			for {
				select {
				case e := <-j.queue:
					j.write(e)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(e room.Entry) {
	rec, err := encodeRecord(e)
	if err != nil {
		j.log.WithError(err).WithField("room", e.Room).Error("encode journal record")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.w.append(ctx, Key(e.Room), rec); err != nil {
		j.log.WithError(err).WithFields(logrus.Fields{"room": e.Room, "seq": e.Seq}).
			Error("append journal record")
	}
}

// Connect opens a redis client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
