package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"kickride/internal/repository"
)

// recordedQuery is a statement seen by the recording driver and the
// transaction it ran in (0 when outside one).
type recordedQuery struct {
	query string
	tx    int
}

// recording captures what database/sql sent to the driver.
type recording struct {
	mu        sync.Mutex
	total     int64
	begins    []driver.TxOptions
	queries   []recordedQuery
	commits   int
	rollbacks int
}

func (r *recording) Connect(context.Context) (driver.Conn, error) {
	return &recordingConn{rec: r}, nil
}

func (r *recording) Driver() driver.Driver {
	return recordingDriver{rec: r}
}

type recordingDriver struct {
	rec *recording
}

func (d recordingDriver) Open(string) (driver.Conn, error) {
	return &recordingConn{rec: d.rec}, nil
}

type recordingConn struct {
	rec *recording
	tx  int
}

func (c *recordingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *recordingConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()

	c.rec.begins = append(c.rec.begins, opts)
	c.tx = len(c.rec.begins)
	return &recordingTx{conn: c}, nil
}

func (c *recordingConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()

	c.rec.queries = append(c.rec.queries, recordedQuery{query: query, tx: c.tx})
	if strings.HasPrefix(query, "SELECT COUNT(*)") {
		return &countRows{total: c.rec.total}, nil
	}
	return &emptyRows{columns: strings.Split(rideColumns, ", ")}, nil
}

type recordingTx struct {
	conn *recordingConn
}

func (t *recordingTx) Commit() error {
	t.conn.rec.mu.Lock()
	defer t.conn.rec.mu.Unlock()

	t.conn.rec.commits++
	t.conn.tx = 0
	return nil
}

func (t *recordingTx) Rollback() error {
	t.conn.rec.mu.Lock()
	defer t.conn.rec.mu.Unlock()

	t.conn.rec.rollbacks++
	t.conn.tx = 0
	return nil
}

type countRows struct {
	total int64
	done  bool
}

func (r *countRows) Columns() []string { return []string{"count"} }
func (r *countRows) Close() error      { return nil }

func (r *countRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.total
	return nil
}

type emptyRows struct {
	columns []string
}

func (r *emptyRows) Columns() []string         { return r.columns }
func (r *emptyRows) Close() error              { return nil }
func (r *emptyRows) Next([]driver.Value) error { return io.EOF }

func setupRecordingRepo(t *testing.T, total int64) (*RideRepository, *recording) {
	t.Helper()
	rec := &recording{total: total}
	db := sql.OpenDB(rec)
	t.Cleanup(func() { db.Close() })
	return NewRideRepository(db), rec
}

func TestList_CountAndPageShareReadOnlySnapshot(t *testing.T) {
	repo, rec := setupRecordingRepo(t, 3)

	rides, total, err := repo.List(context.Background(), repository.RideFilter{UserID: "user-1", Take: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if rides == nil || len(rides) != 0 {
		t.Errorf("expected empty non-nil page, got %v", rides)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.begins) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(rec.begins))
	}
	opts := rec.begins[0]
	if opts.Isolation != driver.IsolationLevel(sql.LevelRepeatableRead) {
		t.Errorf("expected REPEATABLE READ, got %v", sql.IsolationLevel(opts.Isolation))
	}
	if !opts.ReadOnly {
		t.Error("expected read-only transaction")
	}

	if len(rec.queries) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(rec.queries))
	}
	if !strings.HasPrefix(rec.queries[0].query, "SELECT COUNT(*)") {
		t.Errorf("expected count first, got %q", rec.queries[0].query)
	}
	if !strings.Contains(rec.queries[1].query, "LIMIT") {
		t.Errorf("expected paged select second, got %q", rec.queries[1].query)
	}
	for _, q := range rec.queries {
		if q.tx != 1 {
			t.Errorf("statement %q ran outside the list transaction", q.query)
		}
	}
	if rec.commits != 1 || rec.rollbacks != 0 {
		t.Errorf("expected 1 commit and no rollback, got %d/%d", rec.commits, rec.rollbacks)
	}
}

func TestList_ZeroTakeReturnsOnlyTotal(t *testing.T) {
	repo, rec := setupRecordingRepo(t, 7)

	rides, total, err := repo.List(context.Background(), repository.RideFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7 {
		t.Errorf("expected total 7, got %d", total)
	}
	if len(rides) != 0 {
		t.Errorf("expected no rides, got %d", len(rides))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.queries) != 1 {
		t.Fatalf("expected only the count statement, got %d", len(rec.queries))
	}
	if !strings.HasPrefix(rec.queries[0].query, "SELECT COUNT(*)") {
		t.Errorf("unexpected statement %q", rec.queries[0].query)
	}
	if rec.queries[0].tx != 1 || rec.commits != 1 {
		t.Errorf("expected count inside a committed transaction, got tx=%d commits=%d", rec.queries[0].tx, rec.commits)
	}
}
