package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakeReply задаёт ответ на запрос, текст которого содержит match.
type fakeReply struct {
	match   string
	columns []string
	rows    [][]driver.Value
	err     error
}

// fakeScript описывает сценарий мок-БД: ответы на запросы и журнал выполненных команд.
type fakeScript struct {
	mu        sync.Mutex
	replies   []fakeReply
	execs     []string
	execArgs  [][]driver.Value
	queries   []string
	queryArgs [][]driver.Value
	commits   int
	rollbacks int
}

func (s *fakeScript) reply(query string) (fakeReply, bool) {
	for i, r := range s.replies {
		if strings.Contains(query, r.match) {
			s.replies = append(s.replies[:i:i], s.replies[i+1:]...)
			return r, true
		}
	}
	return fakeReply{}, false
}

var (
	fakeScriptsMu sync.Mutex
	fakeScripts   = map[string]*fakeScript{}
)

type fakeDriver struct{}

type fakeConn struct{ s *fakeScript }

type fakeTx struct{ s *fakeScript }

type fakeRows struct {
	columns []string
	data    [][]driver.Value
	idx     int
}

type fakeResult struct{}

func init() { sql.Register("storageFake", fakeDriver{}) }

func (fakeDriver) Open(name string) (driver.Conn, error) {
	fakeScriptsMu.Lock()
	defer fakeScriptsMu.Unlock()
	s, ok := fakeScripts[name]
	if !ok {
		return nil, fmt.Errorf("нет сценария %q", name)
	}
	return &fakeConn{s: s}, nil
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return &fakeTx{s: c.s}, nil }

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.queries = append(c.s.queries, query)
	c.s.queryArgs = append(c.s.queryArgs, values(args))
	r, ok := c.s.reply(query)
	if !ok {
		return nil, fmt.Errorf("неожиданный запрос: %s", query)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{columns: r.columns, data: r.rows}, nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.execs = append(c.s.execs, query)
	c.s.execArgs = append(c.s.execArgs, values(args))
	if r, ok := c.s.reply(query); ok && r.err != nil {
		return nil, r.err
	}
	return fakeResult{}, nil
}

func (t *fakeTx) Commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.rollbacks++
	return nil
}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

func (r *fakeRows) Columns() []string { return r.columns }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.idx])
	r.idx++
	return nil
}

func values(args []driver.NamedValue) []driver.Value {
	res := make([]driver.Value, len(args))
	for i, a := range args {
		res[i] = a.Value
	}
	return res
}

// openFake открывает мок-БД с одним соединением по сценарию.
func openFake(t *testing.T, replies ...fakeReply) (*DB, *fakeScript) {
	t.Helper()
	s := &fakeScript{replies: replies}
	name := t.Name()
	fakeScriptsMu.Lock()
	fakeScripts[name] = s
	fakeScriptsMu.Unlock()

	conn, err := sql.Open("storageFake", name)
	if err != nil {
		t.Fatalf("не удалось открыть мок БД: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = conn.Close()
		fakeScriptsMu.Lock()
		delete(fakeScripts, name)
		fakeScriptsMu.Unlock()
	})
	return NewDB(conn), s
}
