// Package lease раздаёт общие соединения с дата-центрами по счётчику
// заимствований и закрывает их после простоя.
package lease

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/bin"
	"github.com/naztar0/TgPostsGuardian/pkg/metrics"
	log "github.com/sirupsen/logrus"
)

// DefaultIdleTimeout задаёт время простоя, после которого соединение закрывается.
const DefaultIdleTimeout = 60 * time.Second

// Conn описывает авторизованное соединение с дата-центром.
type Conn interface {
	Invoke(ctx context.Context, input bin.Encoder, output bin.Decoder) error
	Close() error
}

// Dialer открывает соединение с дата-центром dc.
type Dialer interface {
	Dial(ctx context.Context, dc int) (Conn, error)
}

// DialerFunc адаптирует функцию к Dialer.
type DialerFunc func(ctx context.Context, dc int) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, dc int) (Conn, error) { return f(ctx, dc) }

// InvariantViolation сообщает о нарушении учёта заимствований. Передаётся в panic.
type InvariantViolation struct {
	DC     int
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("lease dc %d: %s", e.DC, e.Reason)
}

type state struct {
	mu         sync.Mutex
	dc         int
	conn       Conn
	borrowed   int
	connected  bool
	emptySince time.Time
}

// Manager хранит по одному соединению на дата-центр.
type Manager struct {
	dialer Dialer
	idle   time.Duration
	now    func() time.Time

	mu     sync.Mutex
	states map[int]*state
}

// NewManager создаёт менеджер. idle <= 0 означает DefaultIdleTimeout.
func NewManager(dialer Dialer, idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		dialer: dialer,
		idle:   idle,
		now:    time.Now,
		states: make(map[int]*state),
	}
}

func (m *Manager) state(dc int) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[dc]
	if !ok {
		s = &state{dc: dc}
		m.states[dc] = s
	}
	return s
}

// Lease описывает заимствованное соединение. Реализует tg.Invoker.
type Lease struct {
	m    *Manager
	s    *state
	conn Conn
}

// DC возвращает номер дата-центра соединения.
func (l *Lease) DC() int { return l.s.dc }

// Invoke выполняет запрос через соединение.
func (l *Lease) Invoke(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
	return l.conn.Invoke(ctx, input, output)
}

// Return возвращает соединение менеджеру.
func (l *Lease) Return() { l.m.release(l.s) }

// Borrow выдаёт соединение с дата-центром dc, открывая его при необходимости.
func (m *Manager) Borrow(ctx context.Context, dc int) (*Lease, error) {
	s := m.state(dc)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if s.conn == nil {
			log.Infof("[LEASE] открытие соединения с DC %d", dc)
		} else {
			log.Infof("[LEASE] переподключение к DC %d", dc)
		}
		conn, err := m.dialer.Dial(ctx, dc)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к DC %d: %w", dc, err)
		}
		s.conn = conn
		s.connected = true
	}
	s.borrowed++
	metrics.LeasesBorrowed.WithLabelValues(strconv.Itoa(dc)).Set(float64(s.borrowed))
	return &Lease{m: m, s: s, conn: s.conn}, nil
}

func (m *Manager) release(s *state) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.borrowed == 0 {
		panic(&InvariantViolation{DC: s.dc, Reason: "возврат без заимствования"})
	}
	s.borrowed--
	if s.borrowed == 0 {
		s.emptySince = m.now()
	}
	metrics.LeasesBorrowed.WithLabelValues(strconv.Itoa(s.dc)).Set(float64(s.borrowed))
}

func (m *Manager) idleLocked(s *state) bool {
	return s.borrowed == 0 && s.connected && m.now().Sub(s.emptySince) > m.idle
}

// ShouldDisconnect сообщает, простаивает ли соединение дольше таймаута.
func (m *Manager) ShouldDisconnect(dc int) bool {
	m.mu.Lock()
	s, ok := m.states[dc]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.idleLocked(s)
}

// Borrowed возвращает текущее число заимствований соединения с dc.
func (m *Manager) Borrowed(dc int) int {
	m.mu.Lock()
	s, ok := m.states[dc]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.borrowed
}

func (m *Manager) disconnectLocked(s *state) error {
	if s.borrowed > 0 {
		panic(&InvariantViolation{DC: s.dc, Reason: "отключение занятого соединения"})
	}
	s.connected = false
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (m *Manager) snapshot() []*state {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]*state, 0, len(m.states))
	for _, s := range m.states {
		states = append(states, s)
	}
	return states
}

// Sweep закрывает соединения, простаивающие дольше таймаута.
func (m *Manager) Sweep() {
	for _, s := range m.snapshot() {
		s.mu.Lock()
		if m.idleLocked(s) {
			log.Infof("[LEASE] закрытие простаивающего соединения с DC %d", s.dc)
			if err := m.disconnectLocked(s); err != nil {
				log.WithError(err).Warnf("[LEASE] ошибка закрытия соединения с DC %d", s.dc)
			}
		}
		s.mu.Unlock()
	}
}

// Run периодически вызывает Sweep до отмены ctx, затем закрывает все
// свободные соединения.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close закрывает все незанятые соединения.
func (m *Manager) Close() {
	for _, s := range m.snapshot() {
		s.mu.Lock()
		if s.connected && s.borrowed == 0 {
			if err := m.disconnectLocked(s); err != nil {
				log.WithError(err).Warnf("[LEASE] ошибка закрытия соединения с DC %d", s.dc)
			}
		}
		s.mu.Unlock()
	}
}
