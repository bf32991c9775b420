package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	settings models.Settings
	channels []models.Channel
	sessions []models.UserBotSession
	filters  []storage.ChannelFilter
	pings    int
}

func (s *fakeStore) Settings(context.Context) (models.Settings, error) { return s.settings, nil }

func (s *fakeStore) Channels(_ context.Context, f storage.ChannelFilter) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	return s.channels, nil
}

func (s *fakeStore) ActiveSessions(context.Context) ([]models.UserBotSession, error) {
	return s.sessions, nil
}

func (s *fakeStore) Ping(context.Context, int64, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return nil
}

type fakeCycles struct {
	mu       sync.Mutex
	calls    map[string][]models.Channel
	viewsErr error
	done     chan string
}

func newFakeCycles() *fakeCycles {
	return &fakeCycles{calls: map[string][]models.Channel{}, done: make(chan string, 16)}
}

func (c *fakeCycles) record(name string, channels []models.Channel) {
	c.mu.Lock()
	c.calls[name] = channels
	c.mu.Unlock()
	c.done <- name
}

func (c *fakeCycles) CheckViews(_ context.Context, ch []models.Channel) error {
	c.record("views", ch)
	return c.viewsErr
}

func (c *fakeCycles) CheckStats(_ context.Context, ch []models.Channel) error {
	c.record("stats", ch)
	return nil
}

func (c *fakeCycles) CheckDeletions(_ context.Context, ch []models.Channel) error {
	c.record("deletions", ch)
	return nil
}

func (c *fakeCycles) DeleteOldPosts(_ context.Context, ch []models.Channel) error {
	c.record("old_posts", ch)
	return nil
}

func hourlySettings() models.Settings {
	s := models.DefaultSettings()
	s.CheckPostViewsIntervalSec = 3600
	s.CheckPostDeletionsIntervalSec = 3600
	s.CheckStatsIntervalSec = 3600
	return s
}

func TestWorkerRunsEveryJob(t *testing.T) {
	store := &fakeStore{settings: hourlySettings(), channels: []models.Channel{{ID: 1}, {ID: 2}}}
	cycles := newFakeCycles()
	refreshed := make(chan struct{}, 1)
	refresher := RefresherFunc(func(context.Context) error {
		refreshed <- struct{}{}
		return errors.New("временная ошибка")
	})
	w := NewWorker(store, cycles, refresher, models.UserBotSession{ID: 1, Mode: models.SessionWorker})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	seen := map[string]bool{}
	for len(seen) < 4 {
		select {
		case name := <-cycles.done:
			seen[name] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("не все циклы запущены: %v", seen)
		}
	}
	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("обновление каналов не запущено")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("планировщик не остановился")
	}
	assert.Len(t, cycles.calls["views"], 2)
	store.mu.Lock()
	assert.GreaterOrEqual(t, store.pings, 5)
	store.mu.Unlock()
}

func TestWorkerStopsOnFault(t *testing.T) {
	store := &fakeStore{settings: hourlySettings(), channels: []models.Channel{{ID: 1}}}
	cycles := newFakeCycles()
	cycles.viewsErr = &transport.Fault{Op: "messages.getHistory", Err: errors.New("connection reset")}
	w := NewWorker(store, cycles, RefresherFunc(func(context.Context) error { return nil }),
		models.UserBotSession{ID: 1, Mode: models.SessionWorker})

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(context.Background()) }()

	select {
	case err := <-errCh:
		assert.True(t, transport.IsFault(err))
	case <-time.After(10 * time.Second):
		t.Fatal("сбой транспорта не остановил планировщик")
	}
}

func TestWorkerIndividualAllocation(t *testing.T) {
	settings := hourlySettings()
	settings.IndividualAllocations = true
	store := &fakeStore{
		settings: settings,
		channels: []models.Channel{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		sessions: []models.UserBotSession{
			{ID: 1, Mode: models.SessionWorker},
			{ID: 2, Mode: models.SessionListener},
			{ID: 3, Mode: models.SessionWorker},
		},
	}
	w := NewWorker(store, newFakeCycles(), nil, models.UserBotSession{ID: 3, Mode: models.SessionWorker})

	channels, err := w.channels(context.Background(), storage.ChannelFilter{DeletionsLimit: true})
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{{ID: 3}, {ID: 4}}, channels)
	assert.True(t, store.filters[0].DeletionsLimit)

	unknown := NewWorker(store, newFakeCycles(), nil, models.UserBotSession{ID: 2, Mode: models.SessionListener})
	channels, err = unknown.channels(context.Background(), storage.ChannelFilter{})
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestWorkerRunOnce(t *testing.T) {
	store := &fakeStore{settings: hourlySettings(), channels: []models.Channel{{ID: 5}}}
	cycles := newFakeCycles()
	w := NewWorker(store, cycles, RefresherFunc(func(context.Context) error { return nil }),
		models.UserBotSession{ID: 1, Mode: models.SessionWorker})

	require.NoError(t, w.RunOnce(context.Background(), "deletions"))
	assert.Equal(t, []models.Channel{{ID: 5}}, cycles.calls["deletions"])
	assert.Empty(t, cycles.calls["views"])

	assert.ErrorIs(t, w.RunOnce(context.Background(), "unknown"), ErrUnknownCycle)
}

func TestFleetRunCycleWithoutWorkers(t *testing.T) {
	f := NewFleet(nil, nil, Options{})
	assert.ErrorIs(t, f.RunCycle(context.Background(), "views"), ErrNoWorkers)
}

func TestFleetRunCycle(t *testing.T) {
	store := &fakeStore{settings: hourlySettings(), channels: []models.Channel{{ID: 5}}}
	cycles := newFakeCycles()
	f := NewFleet(nil, nil, Options{})
	f.addWorker(1, NewWorker(store, cycles, nil, models.UserBotSession{ID: 1, Mode: models.SessionWorker}))

	require.NoError(t, f.RunCycle(context.Background(), "stats"))
	assert.Equal(t, []models.Channel{{ID: 5}}, cycles.calls["stats"])

	f.removeWorker(1)
	assert.ErrorIs(t, f.RunCycle(context.Background(), "stats"), ErrNoWorkers)
}
