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
	"time"
)

// lockConnector hands out stub connections that only understand the
// advisory lock queries, recording which connection served which query.
type lockConnector struct {
	mu           sync.Mutex
	conns        []*lockConn
	lockResult   bool
	unlockResult bool
}

func (c *lockConnector) Connect(context.Context) (driver.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn := &lockConn{connector: c}
	c.conns = append(c.conns, conn)
	return conn, nil
}

func (c *lockConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use sql.OpenDB")
}

type lockConn struct {
	connector *lockConnector
	queries   []string
}

func (c *lockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *lockConn) Close() error { return nil }

func (c *lockConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *lockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.connector.mu.Lock()
	c.queries = append(c.queries, query)
	lockResult := c.connector.lockResult
	unlockResult := c.connector.unlockResult
	c.connector.mu.Unlock()

	switch {
	case strings.Contains(query, "pg_try_advisory_lock"):
		return &boolRows{value: lockResult}, nil
	case strings.Contains(query, "pg_advisory_unlock"):
		return &boolRows{value: unlockResult}, nil
	}
	return nil, errors.New("unexpected query: " + query)
}

type boolRows struct {
	value bool
	done  bool
}

func (r *boolRows) Columns() []string { return []string{"result"} }
func (r *boolRows) Close() error      { return nil }

func (r *boolRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.value
	return nil
}

func TestTryAdvisoryLock_LockAndUnlockShareSession(t *testing.T) {
	connector := &lockConnector{lockResult: true, unlockResult: true}
	db := sql.OpenDB(connector)
	defer db.Close()

	s := New(db, time.Second)

	release, acquired, err := s.TryAdvisoryLock(context.Background(), 914217)
	if err != nil {
		t.Fatalf("TryAdvisoryLock returned error: %v", err)
	}
	if !acquired {
		t.Fatal("expected lock to be acquired")
	}

	if err := release(context.Background()); err != nil {
		t.Fatalf("release returned error: %v", err)
	}

	connector.mu.Lock()
	defer connector.mu.Unlock()
	if len(connector.conns) != 1 {
		t.Fatalf("lock cycle used %d connections, want 1 dedicated connection", len(connector.conns))
	}
	qs := connector.conns[0].queries
	if len(qs) != 2 ||
		!strings.Contains(qs[0], "pg_try_advisory_lock") ||
		!strings.Contains(qs[1], "pg_advisory_unlock") {
		t.Errorf("unexpected query sequence on dedicated connection: %v", qs)
	}
}

func TestTryAdvisoryLock_DeniedWhenHeldElsewhere(t *testing.T) {
	connector := &lockConnector{lockResult: false}
	db := sql.OpenDB(connector)
	defer db.Close()

	s := New(db, time.Second)

	release, acquired, err := s.TryAdvisoryLock(context.Background(), 914217)
	if err != nil {
		t.Fatalf("TryAdvisoryLock returned error: %v", err)
	}
	if acquired {
		t.Error("lock should not have been acquired")
	}
	if release != nil {
		t.Error("no release func expected when the lock is denied")
	}
}

func TestRelease_UnlockNotHeldSurfacesError(t *testing.T) {
	connector := &lockConnector{lockResult: true, unlockResult: false}
	db := sql.OpenDB(connector)
	defer db.Close()

	s := New(db, time.Second)

	release, acquired, err := s.TryAdvisoryLock(context.Background(), 914217)
	if err != nil {
		t.Fatalf("TryAdvisoryLock returned error: %v", err)
	}
	if !acquired {
		t.Fatal("expected lock to be acquired")
	}

	err = release(context.Background())
	if err == nil {
		t.Fatal("expected an error when Postgres reports the lock was not held")
	}
	if !strings.Contains(err.Error(), "not held") {
		t.Errorf("error should name the unheld lock, got: %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme", "acme"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`c:\temp`, `c:\\temp`},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
