package library

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPositionDebounce is the write-back window for location reports.
const DefaultPositionDebounce = time.Second

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	Logger       *log.Logger
	Now          func() time.Time
	// OnWriteError is called when a debounced write fails. Failures are
	// otherwise only logged since no caller is waiting on them.
	OnWriteError func(id Identity, pos Position, err error)
}

// Tracker records reading positions per (identity, book). Location reports
// are debounced: only the last report of a burst is written.
type Tracker struct {
	stores       PositionStores
	debouncer    *Debouncer
	writeTimeout time.Duration
	logger       *log.Logger
	now          func() time.Time
	onWriteError func(Identity, Position, error)

	mu     sync.Mutex
	latest map[string]pendingPosition
}

type pendingPosition struct {
	id  Identity
	pos Position
}

// NewTracker creates a position tracker over stores.
func NewTracker(stores PositionStores, opts TrackerOptions) *Tracker {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultPositionDebounce
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		stores:       stores,
		debouncer:    NewDebouncer(opts.Debounce),
		writeTimeout: opts.WriteTimeout,
		logger:       opts.Logger.WithPrefix("positions"),
		now:          opts.Now,
		onWriteError: opts.OnWriteError,
		latest:       make(map[string]pendingPosition),
	}
}

func positionKey(id Identity, book string) string {
	return id.Key() + "/" + book
}

// Get returns the last known position of book. A report still waiting for
// its debounced write wins over the stored value.
func (t *Tracker) Get(ctx context.Context, id Identity, book string) (Position, bool, error) {
	if err := id.validate(); err != nil {
		return Position{}, false, err
	}
	t.mu.Lock()
	p, ok := t.latest[positionKey(id, book)]
	t.mu.Unlock()
	if ok {
		return p.pos, true, nil
	}

	pos, err := t.stores.Get(ctx, id, book)
	if err != nil {
		return Position{}, false, err
	}
	if pos == nil {
		return Position{}, false, nil
	}
	return *pos, true, nil
}

// Resume returns where the reader should reopen book: the stored position,
// or location 1 when the book was never opened. TotalLocations stays zero
// until the renderer reports it.
func (t *Tracker) Resume(ctx context.Context, id Identity, book string) (Position, error) {
	pos, ok, err := t.Get(ctx, id, book)
	if err != nil {
		return Position{}, err
	}
	if !ok || pos.CurrentLocation < 1 {
		return Position{BookID: book, CurrentLocation: 1, TotalLocations: pos.TotalLocations}, nil
	}
	return pos, nil
}

// Report records a location change coming from the renderer. The write
// happens once the debounce window passes without another report for the
// same (identity, book).
func (t *Tracker) Report(id Identity, book string, current, total int) (Position, error) {
	if err := id.validate(); err != nil {
		return Position{}, err
	}
	book = strings.TrimSpace(book)
	if book == "" {
		return Position{}, InvalidBook(book)
	}
	if total < 1 {
		return Position{}, InvalidPosition("total locations must be at least 1")
	}
	if current < 1 {
		return Position{}, InvalidPosition("current location must be at least 1")
	}
	if current > total {
		current = total
	}

	pos := Position{
		BookID:             book,
		CurrentLocation:    current,
		TotalLocations:     total,
		ProgressPercentage: Progress(current, total),
		LastUpdated:        t.now(),
	}

	key := positionKey(id, book)
	t.mu.Lock()
	t.latest[key] = pendingPosition{id: id, pos: pos}
	t.mu.Unlock()

	t.debouncer.Schedule(key, func() { t.write(key) })
	return pos, nil
}

func (t *Tracker) write(key string) {
	t.mu.Lock()
	p, ok := t.latest[key]
	delete(t.latest, key)
	t.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()
	if err := t.stores.Save(ctx, p.id, p.pos); err != nil {
		t.logger.Error("position write failed", "identity", p.id, "book", p.pos.BookID, "err", err)
		if t.onWriteError != nil {
			t.onWriteError(p.id, p.pos, err)
		}
		return
	}
	t.logger.Debug("position saved", "identity", p.id, "book", p.pos.BookID, "location", p.pos.CurrentLocation)
}

// CancelIdentity discards every pending write of id. Called when a session
// switches identity so nothing leaks into the next one.
func (t *Tracker) CancelIdentity(id Identity) int {
	prefix := id.Key() + "/"
	n := t.debouncer.CancelPrefix(prefix)
	t.mu.Lock()
	for key := range t.latest {
		if strings.HasPrefix(key, prefix) {
			delete(t.latest, key)
		}
	}
	t.mu.Unlock()
	if n > 0 {
		t.logger.Debug("pending writes cancelled", "identity", id, "count", n)
	}
	return n
}

// FlushIdentity writes every pending position of id immediately.
func (t *Tracker) FlushIdentity(_ context.Context, id Identity) int {
	return t.debouncer.FlushPrefix(id.Key() + "/")
}

// Flush writes every pending position immediately.
func (t *Tracker) Flush(_ context.Context) int {
	return t.debouncer.Flush()
}

// Pending returns the number of writes waiting for their window to pass.
func (t *Tracker) Pending() int {
	return t.debouncer.Pending()
}

// Close flushes pending writes and stops accepting new ones.
func (t *Tracker) Close(ctx context.Context) {
	if n := t.Flush(ctx); n > 0 {
		t.logger.Info("flushed pending positions", "count", n)
	}
	t.debouncer.Stop()
}
