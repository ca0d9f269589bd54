package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerMG2/card-games/engine"
	"github.com/TylerMG2/card-games/internal/room"
)

type call struct {
	key string
	rec []byte
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []call
	gate  chan struct{}
	err   error
}

func (w *fakeWriter) append(ctx context.Context, key string, rec []byte) error {
	if w.gate != nil {
		<-w.gate
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call{key, rec})
	return w.err
}

func entry(seq uint64) room.Entry {
	return room.Entry{
		Room:    "ABCD",
		Seq:     seq,
		To:      engine.NoSlot,
		Kind:    engine.ServerHostChanged,
		Payload: []byte{0x82, 0x06, 0x81, 0x01},
		At:      time.UnixMilli(1700000000000),
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "room:ABCD:events", Key("ABCD"))
}

func TestJournalWritesInOrder(t *testing.T) {
	w := &fakeWriter{}
	log, _ := test.NewNullLogger()
	j := newJournal(w, 16, log)
	for i := uint64(1); i <= 5; i++ {
		j.Record(entry(i))
	}
	j.Close()

	require.Len(t, w.calls, 5)
	for i, c := range w.calls {
		assert.Equal(t, "room:ABCD:events", c.key)
		var rec Record
		require.NoError(t, cbor.Unmarshal(c.rec, &rec))
		assert.Equal(t, uint64(i+1), rec.Seq)
		assert.Equal(t, engine.NoSlot, rec.To)
		assert.Equal(t, uint8(engine.ServerHostChanged), rec.Kind)
		assert.Equal(t, int64(1700000000000), rec.At)
		assert.Equal(t, cbor.RawMessage{0x82, 0x06, 0x81, 0x01}, rec.Payload)
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	w := &fakeWriter{gate: make(chan struct{})}
	log, hook := test.NewNullLogger()
	j := newJournal(w, 1, log)

	// The worker may hold one entry blocked in append and the queue one more.
	for i := uint64(1); i <= 4; i++ {
		j.Record(entry(i))
	}
	assert.GreaterOrEqual(t, j.Dropped(), uint64(2))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	close(w.gate)
	j.Close()
	assert.Equal(t, 4, len(w.calls)+int(j.Dropped()))
}

func TestJournalLogsWriteErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection refused")}
	log, hook := test.NewNullLogger()
	j := newJournal(w, 4, log)
	j.Record(entry(1))
	j.Close()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "ABCD", hook.LastEntry().Data["room"])
}

func TestJournalIgnoresRecordAfterClose(t *testing.T) {
	w := &fakeWriter{}
	log, _ := test.NewNullLogger()
	j := newJournal(w, 4, log)
	j.Close()
	j.Close()
	j.Record(entry(1))
	assert.Empty(t, w.calls)
}
