package username

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/naztar0/TgPostsGuardian/internal/common"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/metrics"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// Attempts задаёт число попыток смены username.
const Attempts = 3

// Repository описывает данные, которые меняет исполнитель.
type Repository interface {
	Settings(ctx context.Context) (models.Settings, error)
	UpdateChannelUsername(ctx context.Context, channelID int64, username string, at time.Time) error
	CreateLog(ctx context.Context, entry *models.Log) error
}

// Renamer выполняет смену username в мессенджере.
type Renamer interface {
	RenameChannel(ctx context.Context, channel models.Channel, username string) error
}

// Change содержит параметры смены.
type Change struct {
	Reason       models.UsernameChangeReason
	LimitationID *int64
	Comment      string
	// IgnoreWait отключает ожидание после flood wait и прочих ошибок.
	IgnoreWait bool
}

// Changer выполняет смену username от имени сессии юзербота.
type Changer struct {
	repo      Repository
	renamer   Renamer
	userbotID *int64
	maxSleep  time.Duration

	// паузы между попытками
	occupiedDelay time.Duration
	failureDelay  time.Duration
	sleep         func(ctx context.Context, d, limit time.Duration) error

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChanger создаёт исполнитель. maxSleep ограничивает ожидание flood wait.
func NewChanger(repo Repository, renamer Renamer, userbotID int64, maxSleep time.Duration) *Changer {
	return &Changer{
		repo:          repo,
		renamer:       renamer,
		userbotID:     &userbotID,
		maxSleep:      maxSleep,
		occupiedDelay: 5 * time.Second,
		failureDelay:  time.Minute,
		sleep:         common.SleepCapped,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Changer) next(current string, suffixLen int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Generate(current, suffixLen, c.rnd)
}

// Change пытается сменить username канала до Attempts раз. Каждая попытка
// записывается в журнал. Возвращает новый username или пустую строку, если
// смена не удалась. Ошибка возвращается только при отмене контекста или сбое
// хранилища.
func (c *Changer) Change(ctx context.Context, channel models.Channel, ch Change) (string, error) {
	settings, err := c.repo.Settings(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка получения настроек: %w", err)
	}

	for attempt := 1; attempt <= Attempts; attempt++ {
		name := c.next(channel.Username, settings.UsernameSuffixLength)
		log.Infof("[USERNAME] смена username канала %s на %s (попытка %d)", channel, name, attempt)

		err := c.renamer.RenameChannel(ctx, channel, name)
		if err == nil {
			now := time.Now().UTC()
			if err := c.repo.UpdateChannelUsername(ctx, channel.ID, name, now); err != nil {
				return "", fmt.Errorf("ошибка сохранения username: %w", err)
			}
			metrics.UsernameChanges.WithLabelValues(string(ch.Reason), "true").Inc()
			return name, c.writeLog(ctx, channel, ch, true, "")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		metrics.UsernameChanges.WithLabelValues(string(ch.Reason), "false").Inc()
		if err := c.writeLog(ctx, channel, ch, false, models.TruncateError(err)); err != nil {
			return "", err
		}

		var wait, limit time.Duration
		switch rl, ok := transport.AsRateLimit(err); {
		case errors.Is(err, transport.ErrNameOccupied):
			log.Warnf("[USERNAME] username %s занят", name)
			wait = c.occupiedDelay
		case ok:
			log.Warnf("[USERNAME] flood wait %s для канала %s", rl.Wait, channel)
			if ch.IgnoreWait {
				return "", nil
			}
			wait, limit = rl.Wait, c.maxSleep
		default:
			log.WithError(err).Errorf("[USERNAME] ошибка смены username канала %s", channel)
			sentry.CaptureException(err)
			if ch.IgnoreWait {
				continue
			}
			wait = c.failureDelay
		}
		if attempt == Attempts {
			break
		}
		if err := c.sleep(ctx, wait, limit); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (c *Changer) writeLog(ctx context.Context, channel models.Channel, ch Change, success bool, errMsg string) error {
	reason := ch.Reason
	entry := &models.Log{
		Type:         models.LogUsernameChange,
		UserBotID:    c.userbotID,
		ChannelID:    channel.ID,
		LimitationID: ch.LimitationID,
		Reason:       &reason,
		Comment:      ch.Comment,
		Success:      success,
		ErrorMessage: errMsg,
	}
	if err := c.repo.CreateLog(ctx, entry); err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	return nil
}

// Rotate выполняет смену по решению учёта квоты.
func (c *Changer) Rotate(ctx context.Context, channel models.Channel, req quota.Request) (bool, error) {
	name, err := c.Change(ctx, channel, Change{
		Reason:       req.Reason,
		LimitationID: req.LimitationID,
		Comment:      req.Comment,
	})
	return name != "", err
}
