// Package journal records published clock events to SQLite for post-run analysis
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/event"
)

//go:embed schema.sql
var schemaSQL string

// ErrClosed is returned by operations on a closed journal
var ErrClosed = errors.New("journal closed")

const (
	defaultBatchSize     = 64
	defaultFlushInterval = time.Second
	defaultMaxPending    = 8192
)

// Record is one stored event
type Record struct {
	Seq        int64
	Frame      int64
	Kind       event.EventType
	Beat       int // Beat index, action beat or next index depending on kind
	Payload    string
	RecordedAt time.Time
}

// Journal is an event.Handler that buffers events and writes them in batches
//
// HandleEvent runs on the publishing goroutine and only appends to memory
// A writer goroutine flushes when the batch fills or the interval elapses
type Journal struct {
	db      *sql.DB
	session uuid.UUID

	mu       sync.Mutex
	pending  []Record
	dropped  atomic.Int64
	reported atomic.Int64 // dropped total at the last warning

	batchSize     int
	maxPending    int
	flushInterval time.Duration
	now           func() time.Time

	flushChan chan struct{}
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	running   atomic.Bool
	closed    atomic.Bool

	log zerolog.Logger
}

// Option configures a Journal
type Option func(*Journal)

// WithBatchSize sets the buffered event count that triggers a flush
func WithBatchSize(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.batchSize = n
		}
	}
}

// WithFlushInterval sets the periodic flush interval
func WithFlushInterval(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.flushInterval = d
		}
	}
}

// WithMaxPending caps buffered events while writes fail, the oldest are dropped first
func WithMaxPending(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.maxPending = n
		}
	}
}

// WithLogger sets the logger for background flush failures
func WithLogger(l zerolog.Logger) Option {
	return func(j *Journal) { j.log = l }
}

// Open creates or opens the database at path and starts a new session
func Open(ctx context.Context, path, label string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows one writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	j := &Journal{
		db:            db,
		session:       uuid.Must(uuid.NewV7()),
		batchSize:     defaultBatchSize,
		maxPending:    defaultMaxPending,
		flushInterval: defaultFlushInterval,
		now:           time.Now,
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(j)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO sessions (id, started_at, label) VALUES (?, ?, ?)",
		j.session.String(), j.now().UnixNano(), label,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return j, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// Session returns the id events are recorded under
func (j *Journal) Session() uuid.UUID {
	return j.session
}

// EventTypes implements event.Handler
func (j *Journal) EventTypes() []event.EventType {
	return event.AllTypes()
}

// HandleEvent implements event.Handler
func (j *Journal) HandleEvent(ev event.Event) {
	if j.closed.Load() {
		return
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		j.log.Warn().Err(err).Str("event", ev.Type.String()).Msg("unencodable payload")
		return
	}

	rec := Record{
		Frame:      ev.Frame,
		Kind:       ev.Type,
		Beat:       beatOf(ev.Payload),
		Payload:    string(payload),
		RecordedAt: j.now(),
	}

	j.mu.Lock()
	j.pending = append(j.pending, rec)
	j.trimLocked()
	full := len(j.pending) >= j.batchSize
	j.mu.Unlock()

	if full {
		select {
		case j.flushChan <- struct{}{}:
		default:
		}
	}
}

func beatOf(payload any) int {
	switch p := payload.(type) {
	case *event.BeatPayload:
		return p.Index
	case *event.PreTriggerPayload:
		return p.ActionBeat
	case *event.TimingResetPayload:
		return p.NextIndex
	}
	return -1
}

// trimLocked drops the oldest buffered events beyond maxPending and returns how many
func (j *Journal) trimLocked() int {
	over := len(j.pending) - j.maxPending
	if over <= 0 {
		return 0
	}
	j.pending = append(j.pending[:0:0], j.pending[over:]...)
	j.dropped.Add(int64(over))
	return over
}

// reportDropped logs events dropped since the last report
func (j *Journal) reportDropped() {
	total := j.dropped.Load()
	if prev := j.reported.Swap(total); total > prev {
		j.log.Warn().
			Int64("dropped", total-prev).
			Int64("dropped_total", total).
			Int("max_pending", j.maxPending).
			Msg("journal buffer full, oldest events dropped")
	}
}

// Dropped returns the number of events discarded by the buffer cap
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Pending returns the number of buffered, unwritten events
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Start launches the background writer
func (j *Journal) Start() {
	if j.running.CompareAndSwap(false, true) {
		j.wg.Add(1)
		core.Go(j.writerLoop)
	}
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
		case <-j.flushChan:
		}
		if err := j.Flush(context.Background()); err != nil {
			j.log.Error().Err(err).Msg("journal flush failed")
		}
	}
}

// Flush writes buffered events in one transaction
func (j *Journal) Flush(ctx context.Context) error {
	if j.closed.Load() {
		return ErrClosed
	}

	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	j.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := j.write(ctx, batch); err != nil {
		// Requeue ahead of anything buffered meanwhile
		j.mu.Lock()
		j.pending = append(batch, j.pending...)
		j.trimLocked()
		j.mu.Unlock()
		j.reportDropped()
		return err
	}
	j.reportDropped()
	return nil
}

func (j *Journal) write(ctx context.Context, batch []Record) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO events (session_id, frame, kind, beat, payload, recorded_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	session := j.session.String()
	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, session, r.Frame, r.Kind.String(), r.Beat, r.Payload, r.RecordedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert %s: %w", r.Kind, err)
		}
	}
	return tx.Commit()
}

// Events returns this session's stored events of kind in publish order
// EventNone returns every kind
func (j *Journal) Events(ctx context.Context, kind event.EventType) ([]Record, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	query := "SELECT seq, frame, kind, beat, payload, recorded_at FROM events WHERE session_id = ?"
	args := []any{j.session.String()}
	if kind != event.EventNone {
		query += " AND kind = ?"
		args = append(args, kind.String())
	}
	query += " ORDER BY seq"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			name string
			at   int64
		)
		if err := rows.Scan(&r.Seq, &r.Frame, &name, &r.Beat, &r.Payload, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.Kind, _ = event.GetEventType(name)
		r.RecordedAt = time.Unix(0, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns this session's stored event count per kind
func (j *Journal) Counts(ctx context.Context) (map[event.EventType]int, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind", j.session.String())
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[event.EventType]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if et, ok := event.GetEventType(name); ok {
			counts[et] = n
		}
	}
	return counts, rows.Err()
}

// Close stops the writer, flushes what is buffered and closes the database
func (j *Journal) Close() error {
	var err error
	j.stopOnce.Do(func() {
		if j.running.CompareAndSwap(true, false) {
			close(j.stopChan)
			j.wg.Wait()
		}
		err = j.Flush(context.Background())
		j.closed.Store(true)
		if cerr := j.db.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
