package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/naztar0/TgPostsGuardian/internal/common"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/action"
	"github.com/naztar0/TgPostsGuardian/pkg/dispatcher"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/telegram"
	"github.com/naztar0/TgPostsGuardian/pkg/username"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// restartDelay задаёт диапазон паузы в секундах перед переподключением сессии.
var restartDelay = [2]int{10, 30}

// ErrNoWorkers означает, что нет подключённых рабочих сессий.
var ErrNoWorkers = errors.New("нет подключённых рабочих сессий")

// Store описывает хранилище, которое использует запущенная сессия.
type Store interface {
	WorkerStore
	dispatcher.Repository
	quota.Store
	telegram.SessionRepository
	telegram.ChannelRepository
	telegram.ServiceRepository
	UsernameChangeCooldown(ctx context.Context) (time.Duration, error)
	Channel(ctx context.Context, channelID int64) (models.Channel, error)
	UpdateChannelUsername(ctx context.Context, channelID int64, username string, at time.Time) error
	UserBot(ctx context.Context, id int64) (models.UserBot, error)
	UpdateUserBotIdentity(ctx context.Context, id, userID int64, username string) error
}

// Options содержит параметры сессий.
type Options struct {
	MaxSleep  time.Duration
	Chunk     int
	RPS       int
	LeaseIdle time.Duration
}

// Fleet запускает все активные сессии юзерботов и перезапускает их после сбоев.
type Fleet struct {
	store    Store
	registry *action.Registry
	opts     Options

	mu      sync.Mutex
	workers map[int64]*Worker
}

// NewFleet создаёт набор сессий. registry заполняется обработчиками
// команд сессий-слушателей.
func NewFleet(store Store, registry *action.Registry, opts Options) *Fleet {
	return &Fleet{store: store, registry: registry, opts: opts, workers: make(map[int64]*Worker)}
}

// Run запускает сессии и ждёт их завершения после отмены контекста.
func (f *Fleet) Run(ctx context.Context) error {
	sessions, err := f.store.ActiveSessions(ctx)
	if err != nil {
		return err
	}
	log.Infof("[WORKER] запуск %d сессий", len(sessions))

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.supervise(ctx, s)
		}()
	}
	wg.Wait()
	return nil
}

func (f *Fleet) supervise(ctx context.Context, s models.UserBotSession) {
	entry := log.WithFields(log.Fields{"session": s.ID, "mode": s.Mode, "phone": s.UserBot.Phone})
	for {
		err := f.runSession(ctx, s)
		if ctx.Err() != nil {
			entry.Info("[WORKER] сессия остановлена")
			return
		}
		if errors.Is(err, telegram.ErrUnauthorized) {
			entry.WithError(err).Error("[WORKER] сессия требует входа")
			sentry.CaptureException(err)
			return
		}
		entry.WithError(err).Error("[WORKER] сессия завершилась, перезапуск")
		sentry.CaptureException(err)
		if err := common.WaitWithCancellation(ctx, restartDelay); err != nil {
			return
		}
	}
}

func (f *Fleet) runSession(ctx context.Context, s models.UserBotSession) error {
	opts := telegram.Options{RPS: f.opts.RPS, LeaseIdle: f.opts.LeaseIdle}
	var listener *telegram.Listener
	if s.Mode == models.SessionListener {
		listener = telegram.NewListener(f.store, s.UserBot.ID)
		opts.Updates = listener.Dispatcher()
	}

	return telegram.Run(ctx, s, f.store, opts, func(ctx context.Context, sess *telegram.Session) error {
		bot := s.UserBot
		bot.UserID = sess.Self.ID
		bot.Username = sess.Self.Username
		if err := f.store.UpdateUserBotIdentity(ctx, bot.ID, bot.UserID, bot.Username); err != nil {
			log.WithError(err).Warn("[WORKER] ошибка сохранения данных юзербота")
		}

		tr := sess.Transport
		changer := username.NewChanger(f.store, tr, bot.ID, f.opts.MaxSleep)
		refresher := RefresherFunc(func(ctx context.Context) error {
			return tr.RefreshChannels(ctx, f.store, bot.ID)
		})

		if listener != nil {
			h := action.NewHandler(f.store, changer, telegram.NewPoster(tr))
			listener.Attach(tr.API(), h)
			return f.listen(ctx, s, bot, h, refresher)
		}

		rotator := action.NewOwnerRotator(bot, changer, f.registry, f.store, telegram.NewSender(tr))
		ledger := quota.NewLedger(f.store, rotator, f.store.UsernameChangeCooldown)
		d := dispatcher.New(f.store, tr, ledger, bot.ID, f.opts.Chunk, f.opts.MaxSleep)
		w := NewWorker(f.store, d, refresher, s)
		f.addWorker(s.ID, w)
		defer f.removeWorker(s.ID)
		return w.Run(ctx)
	})
}

// listen обслуживает сессию-слушателя: команды принимаются до отмены контекста.
func (f *Fleet) listen(ctx context.Context, s models.UserBotSession, bot models.UserBot, h *action.Handler, refresher Refresher) error {
	if err := refresher.Refresh(ctx); err != nil {
		log.WithError(err).Warn("[WORKER] ошибка обновления каналов слушателя")
	}
	f.registry.Register(bot.ID, h)
	defer f.registry.Unregister(bot.ID)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		if err := f.store.Ping(ctx, s.ID, time.Now()); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("[WORKER] ошибка отметки активности сессии")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Fleet) addWorker(sessionID int64, w *Worker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers[sessionID] = w
}

func (f *Fleet) removeWorker(sessionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.workers, sessionID)
}

// RunCycle выполняет задачу name во всех подключённых рабочих сессиях.
func (f *Fleet) RunCycle(ctx context.Context, name string) error {
	f.mu.Lock()
	workers := make([]*Worker, 0, len(f.workers))
	for _, w := range f.workers {
		workers = append(workers, w)
	}
	f.mu.Unlock()
	if len(workers) == 0 {
		return ErrNoWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.RunOnce(ctx, name) })
	}
	return g.Wait()
}
