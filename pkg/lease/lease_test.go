package lease

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gotd/td/bin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	closed bool
}

func (c *fakeConn) Invoke(context.Context, bin.Encoder, bin.Decoder) error { return nil }
func (c *fakeConn) Close() error                                          { c.closed = true; return nil }

type fakeDialer struct {
	mu    sync.Mutex
	dials int
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) Dial(context.Context, int) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.dials++
	c := &fakeConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager() (*Manager, *fakeDialer, *clock) {
	d := &fakeDialer{}
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(d, time.Minute)
	m.now = c.now
	return m, d, c
}

func TestBorrowReturn(t *testing.T) {
	m, d, _ := newTestManager()
	ctx := context.Background()

	a, err := m.Borrow(ctx, 2)
	require.NoError(t, err)
	b, err := m.Borrow(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, d.dials, "соединение переиспользуется")
	assert.Equal(t, 2, m.Borrowed(2))

	a.Return()
	b.Return()
	assert.Equal(t, 0, m.Borrowed(2))

	assert.PanicsWithError(t, (&InvariantViolation{DC: 2, Reason: "возврат без заимствования"}).Error(), func() {
		a.Return()
	})
}

func TestShouldDisconnect(t *testing.T) {
	m, d, clk := newTestManager()
	l, err := m.Borrow(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, m.ShouldDisconnect(4))

	l.Return()
	assert.False(t, m.ShouldDisconnect(4), "сразу после возврата")

	clk.t = clk.t.Add(59 * time.Second)
	assert.False(t, m.ShouldDisconnect(4))

	clk.t = clk.t.Add(2 * time.Second)
	assert.True(t, m.ShouldDisconnect(4))

	m.Sweep()
	assert.True(t, d.conns[0].closed)
	assert.False(t, m.ShouldDisconnect(4))

	_, err = m.Borrow(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, d.dials, "переподключение после закрытия")
}

func TestSweepKeepsBorrowed(t *testing.T) {
	m, d, clk := newTestManager()
	_, err := m.Borrow(context.Background(), 1)
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Hour)
	m.Sweep()
	assert.False(t, d.conns[0].closed)
	assert.False(t, m.ShouldDisconnect(1))
}

func TestDisconnectBorrowedPanics(t *testing.T) {
	m, _, _ := newTestManager()
	_, err := m.Borrow(context.Background(), 1)
	require.NoError(t, err)

	s := m.state(1)
	assert.Panics(t, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = m.disconnectLocked(s)
	})
}

func TestBorrowDialError(t *testing.T) {
	m, d, _ := newTestManager()
	d.err = errors.New("dial failed")

	_, err := m.Borrow(context.Background(), 3)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Borrowed(3))
	assert.False(t, m.ShouldDisconnect(3))
}

func TestConcurrentBorrow(t *testing.T) {
	m, d, _ := newTestManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := m.Borrow(context.Background(), 5)
			if assert.NoError(t, err) {
				l.Return()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, d.dials)
	assert.Equal(t, 0, m.Borrowed(5))
}
