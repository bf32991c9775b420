package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
)

// memRepo реализует хранилище диспетчера в памяти.
type memRepo struct {
	mu          sync.Mutex
	limitations []models.Limitation
	fired       map[int64]bool
	checks      map[int]*models.PostCheck
	snapshots   []models.StatsSnapshot
	logs        []models.Log
	deleted     int
}

func newMemRepo(lims ...models.Limitation) *memRepo {
	return &memRepo{limitations: lims, fired: map[int64]bool{}, checks: map[int]*models.PostCheck{}}
}

func (r *memRepo) Limitations(context.Context, int64) ([]models.Limitation, error) {
	return r.limitations, nil
}

func (r *memRepo) FiredLimitations(context.Context, int64, time.Time) (map[int64]bool, error) {
	return r.fired, nil
}

func (r *memRepo) PostCheck(_ context.Context, _ int64, postID int) (*models.PostCheck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.checks[postID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memRepo) CreatePostCheck(_ context.Context, c *models.PostCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.checks[c.PostID] = &cp
	return nil
}

func (r *memRepo) UpdatePostCheck(ctx context.Context, c *models.PostCheck) error {
	return r.CreatePostCheck(ctx, c)
}

func (r *memRepo) LatestSnapshot(_ context.Context, _ int64, typ models.StatsType, key *string, _ time.Time) (*models.StatsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		s := r.snapshots[i]
		if s.Type != typ || (s.Key == nil) != (key == nil) || (key != nil && *s.Key != *key) {
			continue
		}
		return &s, nil
	}
	return nil, nil
}

func (r *memRepo) CreateSnapshot(_ context.Context, s *models.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Created.IsZero() {
		s.Created = time.Now()
	}
	r.snapshots = append(r.snapshots, *s)
	return nil
}

func (r *memRepo) CreateLog(_ context.Context, entry *models.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *memRepo) CountDeletedPosts(context.Context, int64, time.Time) (int, error) {
	return r.deleted, nil
}

// sliceIterator обходит заранее заданные сообщения.
type sliceIterator struct {
	msgs []transport.Message
	pos  int
}

func (it *sliceIterator) Next(context.Context) bool {
	if it.pos >= len(it.msgs) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Value() transport.Message { return it.msgs[it.pos-1] }
func (it *sliceIterator) Err() error               { return nil }

// fakeTransport запоминает удаления и повторные публикации.
type fakeTransport struct {
	mu          sync.Mutex
	messages    []transport.Message
	graphs      map[string][]byte
	statsErr    error
	deleteErr   map[int]error
	deleted     [][]int
	republished [][]int
}

func (t *fakeTransport) Messages(models.Channel) transport.MessageIterator {
	return &sliceIterator{msgs: t.messages}
}

func (t *fakeTransport) OlderThan(_ context.Context, _ models.Channel, before time.Time, limit int) ([]transport.Message, error) {
	var res []transport.Message
	for _, m := range t.messages {
		if m.Date.Before(before) && len(res) < limit {
			res = append(res, m)
		}
	}
	return res, nil
}

func (t *fakeTransport) MediaGroup(_ context.Context, _ models.Channel, msg transport.Message) ([]transport.Message, error) {
	var res []transport.Message
	for _, m := range t.messages {
		if m.GroupedID == msg.GroupedID {
			res = append(res, m)
		}
	}
	return res, nil
}

func (t *fakeTransport) DeleteMessages(_ context.Context, _ models.Channel, ids []int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.deleteErr[ids[0]]; err != nil {
		return err
	}
	t.deleted = append(t.deleted, ids)
	return nil
}

func (t *fakeTransport) Republish(_ context.Context, _ models.Channel, msgs []transport.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	t.republished = append(t.republished, ids)
	return nil
}

func (t *fakeTransport) StatsGraphs(context.Context, models.Channel, ...string) (map[string][]byte, error) {
	return t.graphs, t.statsErr
}

func (t *fakeTransport) RenameChannel(context.Context, models.Channel, string) error { return nil }

// recordingLedger запоминает запросы на смену username.
type recordingLedger struct {
	mu       sync.Mutex
	requests []quota.Request
	outcome  quota.Outcome
}

func (l *recordingLedger) Attempt(_ context.Context, req quota.Request) (quota.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	return l.outcome, nil
}

type sleepCall struct {
	d, limit time.Duration
}

// sleepRecorder запоминает ожидания вместо сна.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []sleepCall
}

func (s *sleepRecorder) sleep(_ context.Context, d, limit time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sleepCall{d, limit})
	return nil
}
