// Package dispatcher выполняет циклы проверки каналов: просмотры постов,
// статистика, число удалений за день и очистка старых постов. По результатам
// проверок удаляет посты и запрашивает смену username через учёт квоты.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/naztar0/TgPostsGuardian/internal/common"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/metrics"
	"github.com/naztar0/TgPostsGuardian/pkg/policy"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultChunk задаёт число каналов, проверяемых параллельно.
const DefaultChunk = 5

// oldPostsLimit ограничивает, сколько старых постов удаляется за один проход.
const oldPostsLimit = 100

// Repository описывает данные, которые читает и пишет диспетчер.
type Repository interface {
	// Limitations возвращает ограничения канала, новые первыми.
	Limitations(ctx context.Context, channelID int64) ([]models.Limitation, error)
	// FiredLimitations возвращает ID ограничений, упомянутых в журнале канала начиная с since.
	FiredLimitations(ctx context.Context, channelID int64, since time.Time) (map[int64]bool, error)

	PostCheck(ctx context.Context, channelID int64, postID int) (*models.PostCheck, error)
	CreatePostCheck(ctx context.Context, check *models.PostCheck) error
	UpdatePostCheck(ctx context.Context, check *models.PostCheck) error

	// LatestSnapshot возвращает последний снимок статистики начиная с since, nil если нет.
	LatestSnapshot(ctx context.Context, channelID int64, typ models.StatsType, key *string, since time.Time) (*models.StatsSnapshot, error)
	CreateSnapshot(ctx context.Context, snap *models.StatsSnapshot) error

	CreateLog(ctx context.Context, entry *models.Log) error
	// CountDeletedPosts возвращает число разных постов, успешно удалённых начиная с since.
	CountDeletedPosts(ctx context.Context, channelID int64, since time.Time) (int, error)
}

// Ledger ведёт учёт квоты смен username.
type Ledger interface {
	Attempt(ctx context.Context, req quota.Request) (quota.Outcome, error)
}

// Dispatcher выполняет циклы проверки от имени одной сессии юзербота.
type Dispatcher struct {
	repo      Repository
	transport transport.Transport
	ledger    Ledger
	userbotID *int64
	chunk     int
	maxSleep  time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d, limit time.Duration) error
}

// New создаёт диспетчер. chunk <= 0 означает DefaultChunk, maxSleep
// ограничивает ожидание flood wait.
func New(repo Repository, tr transport.Transport, ledger Ledger, userbotID int64, chunk int, maxSleep time.Duration) *Dispatcher {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Dispatcher{
		repo:      repo,
		transport: tr,
		ledger:    ledger,
		userbotID: &userbotID,
		chunk:     chunk,
		maxSleep:  maxSleep,
		now:       time.Now,
		sleep:     common.SleepCapped,
	}
}

// floodGate задерживает начало проверки следующих каналов цикла, пока не
// истечёт flood wait, полученный при проверке одного из них.
type floodGate struct {
	mu    sync.Mutex
	until time.Time
}

func (g *floodGate) hold(until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until.After(g.until) {
		g.until = until
	}
}

func (g *floodGate) remaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.until.Sub(now)
}

// forEach запускает fn для каналов, не больше chunk одновременно. Ошибки
// отдельных каналов пишутся в журнал, сбой транспорта или отмена прерывают цикл.
// После flood wait следующие каналы ждут указанное время, но не дольше maxSleep.
func (d *Dispatcher) forEach(ctx context.Context, cycle string, channels []models.Channel,
	fn func(ctx context.Context, entry *log.Entry, ch models.Channel) error) error {
	start := time.Now()
	defer func() {
		metrics.CycleDuration.WithLabelValues(cycle).Observe(time.Since(start).Seconds())
	}()

	run := log.WithFields(log.Fields{"cycle": cycle, "run": uuid.NewString()})
	run.Debugf("проверка %d каналов", len(channels))

	var gate floodGate
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.chunk)
	for _, ch := range channels {
		g.Go(func() error {
			if wait := gate.remaining(d.now()); wait > 0 {
				if err := d.sleep(gctx, wait, d.maxSleep); err != nil {
					return err
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := run.WithField("channel", ch.ID)
			err := fn(gctx, entry, ch)
			if err == nil {
				return nil
			}
			if transport.IsFault(err) || errors.Is(err, context.Canceled) {
				return fmt.Errorf("канал %s: %w", ch, err)
			}
			if rl, ok := transport.AsRateLimit(err); ok {
				entry.Warnf("flood wait %s при проверке канала %s", rl.Wait, ch)
				gate.hold(d.now().Add(rl.Wait))
				return nil
			}
			entry.WithError(err).Errorf("ошибка проверки канала %s", ch)
			return nil
		})
	}
	return g.Wait()
}

// activated проверяет граф активации и пишет ошибки настройки в журнал.
func activated(entry *log.Entry, g *policy.Graph, l models.Limitation) bool {
	ok, err := g.IsActivated(l.ID)
	if err != nil {
		kind := "other"
		switch {
		case errors.Is(err, policy.ErrSelfReference):
			kind = "self_reference"
		case errors.Is(err, policy.ErrCircularDependency):
			kind = "circular"
		case errors.Is(err, policy.ErrMissingDependency):
			kind = "missing"
		}
		metrics.PolicyConfigErrors.WithLabelValues(kind).Inc()
		entry.WithField("limitation", l.ID).WithError(err).Warn("ошибка настройки ограничения")
	}
	return ok
}

// graph загружает ограничения канала и строит граф активации на сегодня.
func (d *Dispatcher) graph(ctx context.Context, channelID int64, today time.Time) ([]models.Limitation, *policy.Graph, error) {
	lims, err := d.repo.Limitations(ctx, channelID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка загрузки ограничений: %w", err)
	}
	fired, err := d.repo.FiredLimitations(ctx, channelID, today)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка загрузки журнала: %w", err)
	}
	return lims, policy.NewGraph(lims, fired), nil
}

func ofType(lims []models.Limitation, t models.LimitationType) []models.Limitation {
	var res []models.Limitation
	for _, l := range lims {
		if l.Type == t {
			res = append(res, l)
		}
	}
	return res
}

// rotate передаёт запрос на смену username в учёт квоты.
func (d *Dispatcher) rotate(ctx context.Context, entry *log.Entry, req quota.Request) error {
	out, err := d.ledger.Attempt(ctx, req)
	if err != nil {
		return fmt.Errorf("ошибка смены username: %w", err)
	}
	entry.WithFields(log.Fields{"reason": req.Reason, "outcome": out}).Info(req.Comment)
	return nil
}
