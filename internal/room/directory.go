package room

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Archiver stores a summary of every room that closes.
type Archiver interface {
	RecordRoomClosed(ctx context.Context, s Summary) error
}

const archiveTimeout = 5 * time.Second

// Options configures a Directory. Zero values get defaults.
type Options struct {
	CodeLength int
	Journal    Journal
	Archiver   Archiver
	Log        logrus.FieldLogger
	// Seed returns the shuffle seed of a new room.
	Seed func() uint64
	Now  func() time.Time
}

// Directory is the map of live rooms. One mutex serializes every room
// mutation in the process.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room
	opts  Options
	wg    sync.WaitGroup
}

func NewDirectory(opts Options) *Directory {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Seed == nil {
		opts.Seed = rand.Uint64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Directory{
		rooms: make(map[string]*Room),
		opts:  opts,
	}
}

// ValidCode reports whether code has the configured length and only
// ASCII letters and digits.
func (d *Directory) ValidCode(code string) bool {
	if len(code) != d.opts.CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// GetOrCreate returns the room for code, creating it if needed.
func (d *Directory) GetOrCreate(code string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, _ := d.getOrCreate(code)
	return r
}

func (d *Directory) getOrCreate(code string) (*Room, bool) {
	if r, ok := d.rooms[code]; ok {
		return r, false
	}
	r := newRoom(code, d.opts.Seed(), d.opts.Journal, d.opts.Log, d.opts.Now)
	d.rooms[code] = r
	d.opts.Log.WithField("room", code).Info("room created")
	return r, true
}

// Join gets or creates the room and admits id in one critical section. A
// room created for a join that fails is removed again.
func (d *Directory) Join(code string, id uuid.UUID, out *Outbox) (Admission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, created := d.getOrCreate(code)
	adm, err := r.Admit(id, out)
	if err != nil {
		if created {
			delete(d.rooms, code)
		}
		return Admission{}, err
	}
	return adm, nil
}

// Do runs fn on the room for code under the directory lock. It reports
// false if there is no such room.
func (d *Directory) Do(code string, fn func(r *Room)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[code]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// RemoveIfEmpty deletes the room if no slot has a live connection and
// archives its summary in the background.
func (d *Directory) RemoveIfEmpty(code string) bool {
	d.mu.Lock()
	r, ok := d.rooms[code]
	if !ok || !r.IsEmpty() {
		d.mu.Unlock()
		return false
	}
	delete(d.rooms, code)
	s := r.Summary()
	d.mu.Unlock()

	s.Closed = d.opts.Now()
	d.opts.Log.WithFields(logrus.Fields{"room": code, "events": s.Events}).Info("room removed")
	if d.opts.Archiver != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			defer cancel()
			if err := d.opts.Archiver.RecordRoomClosed(ctx, s); err != nil {
				d.opts.Log.WithError(err).WithField("room", code).Error("archive room")
			}
		}()
	}
	return true
}

// Summaries lists the live rooms ordered by code.
func (d *Directory) Summaries() []Summary {
	d.mu.Lock()
	out := make([]Summary, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r.Summary())
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of live rooms.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// Wait blocks until pending archive writes finish.
func (d *Directory) Wait() {
	d.wg.Wait()
}
