// Package worker запускает сессии юзерботов и периодические циклы проверки каналов.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/naztar0/TgPostsGuardian/internal/common"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RefreshInterval задаёт период обновления сведений о каналах.
const RefreshInterval = 5 * time.Minute

// ErrUnknownCycle означает, что задача с таким названием не существует.
var ErrUnknownCycle = errors.New("неизвестный цикл")

// Cycles перечисляет циклы проверки каналов.
type Cycles interface {
	CheckViews(ctx context.Context, channels []models.Channel) error
	CheckStats(ctx context.Context, channels []models.Channel) error
	CheckDeletions(ctx context.Context, channels []models.Channel) error
	DeleteOldPosts(ctx context.Context, channels []models.Channel) error
}

// Refresher обновляет сведения о каналах из мессенджера.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc адаптирует функцию к Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// WorkerStore содержит данные, нужные планировщику.
type WorkerStore interface {
	Settings(ctx context.Context) (models.Settings, error)
	Channels(ctx context.Context, f storage.ChannelFilter) ([]models.Channel, error)
	ActiveSessions(ctx context.Context) ([]models.UserBotSession, error)
	Ping(ctx context.Context, sessionID int64, at time.Time) error
}

// Worker выполняет задачи рабочей сессии по интервалам из настроек.
type Worker struct {
	store     WorkerStore
	cycles    Cycles
	refresher Refresher
	session   models.UserBotSession
	now       func() time.Time
}

// NewWorker создаёт планировщик рабочей сессии.
func NewWorker(store WorkerStore, cycles Cycles, refresher Refresher, session models.UserBotSession) *Worker {
	return &Worker{store: store, cycles: cycles, refresher: refresher, session: session, now: time.Now}
}

type job struct {
	name     string
	interval func(models.Settings) time.Duration
	run      func(ctx context.Context) error
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (w *Worker) jobs() []job {
	return []job{
		{
			name:     "refresh",
			interval: func(models.Settings) time.Duration { return RefreshInterval },
			run:      func(ctx context.Context) error { return w.refresher.Refresh(ctx) },
		},
		{
			name:     "views",
			interval: func(s models.Settings) time.Duration { return seconds(s.CheckPostViewsIntervalSec) },
			run: w.cycle(storage.ChannelFilter{
				LimitationTypes: []models.LimitationType{models.LimitationPostViews},
			}, w.cycles.CheckViews),
		},
		{
			name:     "stats",
			interval: func(s models.Settings) time.Duration { return seconds(s.CheckStatsIntervalSec) },
			run: w.cycle(storage.ChannelFilter{
				LimitationTypes: []models.LimitationType{models.LimitationLanguageStats, models.LimitationSourceStats},
			}, w.cycles.CheckStats),
		},
		{
			name:     "deletions",
			interval: func(s models.Settings) time.Duration { return seconds(s.CheckPostDeletionsIntervalSec) },
			run:      w.cycle(storage.ChannelFilter{DeletionsLimit: true}, w.cycles.CheckDeletions),
		},
		{
			name:     "old_posts",
			interval: func(s models.Settings) time.Duration { return time.Duration(s.DeleteOldPostsIntervalMin) * time.Minute },
			run:      w.cycle(storage.ChannelFilter{OldPosts: true}, w.cycles.DeleteOldPosts),
		},
	}
}

// cycle выбирает каналы сессии по фильтру и запускает fn.
func (w *Worker) cycle(f storage.ChannelFilter, fn func(ctx context.Context, channels []models.Channel) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		channels, err := w.channels(ctx, f)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			return nil
		}
		return fn(ctx, channels)
	}
}

// channels возвращает каналы по фильтру. При индивидуальном распределении
// каждая рабочая сессия получает свою часть каналов.
func (w *Worker) channels(ctx context.Context, f storage.ChannelFilter) ([]models.Channel, error) {
	channels, err := w.store.Channels(ctx, f)
	if err != nil {
		return nil, err
	}
	settings, err := w.store.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	if !settings.IndividualAllocations {
		return channels, nil
	}

	sessions, err := w.store.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	index, count := -1, 0
	for _, s := range sessions {
		if s.Mode != models.SessionWorker {
			continue
		}
		if s.ID == w.session.ID {
			index = count
		}
		count++
	}
	mine := Allocate(channels, count, index)
	log.Debugf("[WORKER] сессия %d (%d из %d): %d из %d каналов", w.session.ID, index, count, len(mine), len(channels))
	return mine, nil
}

// Run выполняет задачи до отмены контекста. Сбой транспорта останавливает
// все задачи и возвращается, чтобы сессия была переподключена.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range w.jobs() {
		g.Go(func() error { return w.loop(ctx, j) })
	}
	return g.Wait()
}

// RunOnce выполняет задачу name один раз вне расписания.
func (w *Worker) RunOnce(ctx context.Context, name string) error {
	for _, j := range w.jobs() {
		if j.name == name {
			return w.runJob(ctx, j)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCycle, name)
}

func (w *Worker) loop(ctx context.Context, j job) error {
	entry := log.WithFields(log.Fields{"session": w.session.ID, "job": j.name})
	for {
		if err := w.store.Ping(ctx, w.session.ID, w.now()); err != nil && ctx.Err() == nil {
			entry.WithError(err).Warn("[WORKER] ошибка отметки активности сессии")
		}

		err := w.runJob(ctx, j)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case transport.IsFault(err):
			entry.WithError(err).Error("[WORKER] сбой транспорта")
			sentry.CaptureException(fmt.Errorf("задача %s: %w", j.name, err))
			return err
		case err != nil:
			entry.WithError(err).Error("[WORKER] ошибка задачи")
		}

		settings, err := w.store.Settings(ctx)
		if err != nil {
			entry.WithError(err).Warn("[WORKER] настройки недоступны, используются значения по умолчанию")
			settings = models.DefaultSettings()
		}
		interval := j.interval(settings)
		if interval <= 0 {
			interval = time.Second
		}
		if err := common.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// runJob выполняет задачу. Паника сообщается в Sentry и не подавляется.
func (w *Worker) runJob(ctx context.Context, j job) error {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[WORKER] паника в задаче %s: %v", j.name, r)
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
			panic(r)
		}
	}()
	start := w.now()
	err := j.run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		log.Debugf("[WORKER] задача %s сессии %d выполнена за %s", j.name, w.session.ID, w.now().Sub(start))
	}
	return err
}
