// Package telemetry records autopilot runs to SQLite so a drive can be
// inspected, listed and plotted afterwards.
package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/internal/timeutil"
	"github.com/teslashibe/go-jetbot/pkg/autopilot"
)

// Run is one autopilot session.
type Run struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Backend   string          `json:"backend"`
	Config    json.RawMessage `json:"config"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitzero"`
	Frames    int             `json:"frames"`
}

// Active reports whether the run has not been ended.
func (r Run) Active() bool { return r.EndedAt.IsZero() }

// Duration is the wall time between start and end.
func (r Run) Duration() time.Duration {
	if r.Active() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RunMeta describes a run being started. Config is stored as JSON.
type RunMeta struct {
	Label   string
	Backend string
	Config  any
}

type row struct {
	run   string
	frame autopilot.Frame
}

// Store is a SQLite backed run recorder. Frames are queued by Record and
// written in batches by a single writer goroutine.
type Store struct {
	db     *sql.DB
	cfg    Config
	clock  timeutil.Clock
	logger *slog.Logger

	// recordMu orders Record against EndRun: a frame Record accepted is
	// queued before the run is cleared, so EndRun's flush writes it.
	recordMu sync.RWMutex
	active   atomic.Pointer[Run]
	dropped  atomic.Uint64

	in       chan row
	flushReq chan chan error
	quit     chan struct{}
	done     chan struct{}
	closeMu  sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for run timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at cfg.Path and migrates it.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	// One connection keeps PRAGMAs in effect and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{
		db:       db,
		cfg:      cfg,
		clock:    timeutil.RealClock{},
		logger:   log.Component("telemetry"),
		in:       make(chan row, cfg.Buffer),
		flushReq: make(chan chan error),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if err := migrateUp(db, s.logger); err != nil {
		db.Close()
		return nil, err
	}
	go s.writer()
	return s, nil
}

// BeginRun starts a new run. Frames passed to Record are attached to it
// until EndRun.
func (s *Store) BeginRun(ctx context.Context, meta RunMeta) (Run, error) {
	if s.isClosed() {
		return Run{}, ErrClosed
	}
	if s.active.Load() != nil {
		return Run{}, ErrRunActive
	}
	cfgJSON := []byte("{}")
	if meta.Config != nil {
		b, err := json.Marshal(meta.Config)
		if err != nil {
			return Run{}, fmt.Errorf("encode run config: %w", err)
		}
		cfgJSON = b
	}
	run := Run{
		ID:        uuid.NewString(),
		Label:     meta.Label,
		Backend:   meta.Backend,
		Config:    cfgJSON,
		StartedAt: s.clock.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, backend, config, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.Backend, string(run.Config), run.StartedAt.UnixNano())
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	if !s.active.CompareAndSwap(nil, &run) {
		return Run{}, ErrRunActive
	}
	s.logger.Info("run started", "run", run.ID, "label", run.Label)
	return run, nil
}

// Record queues a frame for the active run. It never blocks; it returns
// false when there is no active run or the queue is full.
func (s *Store) Record(f autopilot.Frame) bool {
	s.recordMu.RLock()
	defer s.recordMu.RUnlock()
	run := s.active.Load()
	if run == nil || s.isClosed() {
		return false
	}
	select {
	case s.in <- row{run: run.ID, frame: f}:
		return true
	default:
		if s.dropped.Add(1) == 1 {
			s.logger.Warn("telemetry queue full, dropping frames")
		}
		return false
	}
}

// ObserveFrame lets the store be attached to an autopilot as an observer.
func (s *Store) ObserveFrame(f autopilot.Frame) { s.Record(f) }

// Dropped counts frames discarded because the queue was full.
func (s *Store) Dropped() uint64 { return s.dropped.Load() }

// Flush blocks until every queued frame is written.
func (s *Store) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.flushReq <- reply:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndRun stops accepting frames, flushes the ones already queued and
// closes the active run.
func (s *Store) EndRun(ctx context.Context) (Run, error) {
	s.recordMu.Lock()
	run := s.active.Swap(nil)
	s.recordMu.Unlock()
	if run == nil {
		return Run{}, ErrNoRun
	}
	if err := s.Flush(ctx); err != nil {
		return Run{}, fmt.Errorf("flush run %s: %w", run.ID, err)
	}

	ended := s.clock.Now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, frames = (SELECT COUNT(*) FROM frames WHERE run_id = ?) WHERE id = ?`,
		ended.UnixNano(), run.ID, run.ID)
	if err != nil {
		return Run{}, fmt.Errorf("close run: %w", err)
	}
	out, err := s.Run(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	s.logger.Info("run ended", "run", out.ID, "frames", out.Frames, "duration", out.Duration())
	return out, nil
}

// ActiveRun returns the run being recorded, if any.
func (s *Store) ActiveRun() (Run, bool) {
	if r := s.active.Load(); r != nil {
		return *r, true
	}
	return Run{}, false
}

const runColumns = `id, label, backend, config, started_at, ended_at, frames`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var (
		r       Run
		cfg     string
		started int64
		ended   sql.NullInt64
	)
	if err := sc.Scan(&r.ID, &r.Label, &r.Backend, &cfg, &started, &ended, &r.Frames); err != nil {
		return Run{}, err
	}
	r.Config = json.RawMessage(cfg)
	r.StartedAt = time.Unix(0, started)
	if ended.Valid {
		r.EndedAt = time.Unix(0, ended.Int64)
	}
	return r, nil
}

// Run looks up one run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

// Runs lists runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Frames returns the recorded frames of a run in loop order.
func (s *Store) Frames(ctx context.Context, runID string) ([]autopilot.Frame, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, ts, latency_ns, found, source, segments, left_lines, right_lines,
		       center_x, error_px, steering, cmd_linear, cmd_steering,
		       wheel_left, wheel_right, paused, fault
		FROM frames WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []autopilot.Frame
	for rows.Next() {
		var (
			f       autopilot.Frame
			ts      int64
			latency int64
		)
		err := rows.Scan(&f.Index, &ts, &latency, &f.Found, &f.Source, &f.Segments, &f.Left, &f.Right,
			&f.CenterX, &f.Error, &f.Steering, &f.Command.Linear, &f.Command.Steering,
			&f.Wheels.Left, &f.Wheels.Right, &f.Paused, &f.Fault)
		if err != nil {
			return nil, err
		}
		f.Time = time.Unix(0, ts)
		f.Latency = time.Duration(latency)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// DeleteRun removes a run and its frames.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close ends any active run, drains the queue and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeMu.Do(func() {
		if _, ok := s.ActiveRun(); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, endErr := s.EndRun(ctx); endErr != nil {
				s.logger.Warn("end run on close", "error", endErr)
			}
			cancel()
		}
		close(s.quit)
		<-s.done
		err = s.db.Close()
	})
	return err
}

func (s *Store) isClosed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// writer owns all frame inserts.
func (s *Store) writer() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]row, 0, s.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.insert(batch)
		if err != nil {
			s.logger.Error("write frames", "count", len(batch), "error", err)
		}
		batch = batch[:0]
		return err
	}
	drain := func() {
		for {
			select {
			case r := <-s.in:
				batch = append(batch, r)
			default:
				return
			}
		}
	}

	for {
		select {
		case r := <-s.in:
			batch = append(batch, r)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case reply := <-s.flushReq:
			drain()
			reply <- flush()
		case <-s.quit:
			drain()
			flush()
			return
		}
	}
}

func (s *Store) insert(batch []row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO frames (run_id, idx, ts, latency_ns, found, source, segments,
			left_lines, right_lines, center_x, error_px, steering, cmd_linear, cmd_steering,
			wheel_left, wheel_right, paused, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		f := r.frame
		_, err := stmt.Exec(r.run, int64(f.Index), f.Time.UnixNano(), int64(f.Latency), f.Found, f.Source,
			f.Segments, f.Left, f.Right, f.CenterX, f.Error, f.Steering, f.Command.Linear,
			f.Command.Steering, f.Wheels.Left, f.Wheels.Right, f.Paused, f.Fault)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

var _ autopilot.Observer = (*Store)(nil)

