// Package quota ограничивает смену username канала дневным бюджетом,
// общим для всех источников срабатывания, с переносом излишка на день.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/policy"
	log "github.com/sirupsen/logrus"
)

// Tx описывает операции учёта внутри сериализованной по каналу транзакции.
type Tx interface {
	Channel(ctx context.Context, channelID int64) (models.Channel, error)
	// CountUsernameChanges считает успешные смены username канала начиная с since.
	CountUsernameChanges(ctx context.Context, channelID int64, since time.Time) (int, error)
	// LatestExcess возвращает последний излишек канала по причине начиная с since, nil если нет.
	LatestExcess(ctx context.Context, channelID int64, reason models.UsernameChangeReason, since time.Time) (*models.Excess, error)
	CreateExcess(ctx context.Context, e *models.Excess) error
	AddExcess(ctx context.Context, excessID int64, delta int64) error
}

// Store выполняет fn так, что для одного канала одновременно выполняется
// не больше одной транзакции учёта.
type Store interface {
	InChannelTx(ctx context.Context, channelID int64, fn func(ctx context.Context, tx Tx) error) error
}

// Rotator выполняет смену username канала.
// Возвращает false, если смена не состоялась.
type Rotator interface {
	Rotate(ctx context.Context, channel models.Channel, req Request) (bool, error)
}

// Request описывает запрос на смену username от одного источника срабатывания.
type Request struct {
	ChannelID    int64
	Reason       models.UsernameChangeReason
	Comment      string
	LimitationID *int64
	EventsCount  int64
	EventsLimit  int64
}

// Outcome описывает результат попытки.
type Outcome int

const (
	Rotated Outcome = iota
	Cooldown
	Exhausted
	NotAllowed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Rotated:
		return "rotated"
	case Cooldown:
		return "cooldown"
	case Exhausted:
		return "exhausted"
	case NotAllowed:
		return "not_allowed"
	}
	return "failed"
}

// Ledger ведёт учёт дневного бюджета смен username.
type Ledger struct {
	store    Store
	rotator  Rotator
	cooldown func(ctx context.Context) (time.Duration, error)
	locks    *channelLocks
	now      func() time.Time
}

// NewLedger создаёт учёт. cooldown возвращает текущий интервал между сменами.
func NewLedger(store Store, rotator Rotator, cooldown func(ctx context.Context) (time.Duration, error)) *Ledger {
	return &Ledger{
		store:    store,
		rotator:  rotator,
		cooldown: cooldown,
		locks:    newChannelLocks(),
		now:      time.Now,
	}
}

// Budget содержит расчёт бюджета для одного запроса.
type Budget struct {
	DailyCount int64
	Excess     int64
	Consumed   int64
	Allowed    int64
}

// Compute считает бюджет по числу смен за день и банку излишка.
func Compute(dailyCount, excess, eventsCount, eventsLimit int64) Budget {
	if eventsLimit < 1 {
		eventsLimit = 1
	}
	b := Budget{DailyCount: dailyCount, Excess: excess}
	b.Consumed = (excess + dailyCount) * eventsLimit
	if b.Consumed >= eventsCount {
		return b
	}
	b.Allowed = (eventsCount - b.Consumed) / eventsLimit
	return b
}

// Attempt решает, можно ли сменить username канала сейчас, и выполняет не больше
// одной смены. Решение принимается в транзакции под блокировкой канала: вместе с
// ним в банк излишка резервируется allowed единиц, включая текущую смену. Смена
// выполняется после фиксации транзакции. Затем вторая транзакция списывает
// резерв текущей смены при успехе или весь резерв при неудаче. До расчёта
// резерв завышает расход, поэтому параллельный запрос не потратит бюджет дважды.
// Транзакции не прерываются отменой ctx.
func (l *Ledger) Attempt(ctx context.Context, req Request) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Failed, err
	}
	unlock := l.locks.lock(req.ChannelID)
	defer unlock()

	cooldown, err := l.cooldown(ctx)
	if err != nil {
		return Failed, fmt.Errorf("ошибка получения настроек: %w", err)
	}

	var (
		outcome  = Failed
		channel  models.Channel
		reserved int64
		excessID int64
	)
	txCtx := context.WithoutCancel(ctx)
	err = l.store.InChannelTx(txCtx, req.ChannelID, func(txCtx context.Context, tx Tx) error {
		now := l.now()
		var err error
		channel, err = tx.Channel(txCtx, req.ChannelID)
		if err != nil {
			return fmt.Errorf("ошибка загрузки канала: %w", err)
		}
		if channel.LastUsernameChange != nil && now.Sub(*channel.LastUsernameChange) < cooldown {
			outcome = Cooldown
			return nil
		}

		today := policy.Day(now)
		daily, err := tx.CountUsernameChanges(txCtx, channel.ID, today)
		if err != nil {
			return fmt.Errorf("ошибка подсчёта смен username: %w", err)
		}
		excess, err := tx.LatestExcess(txCtx, channel.ID, req.Reason, today)
		if err != nil {
			return fmt.Errorf("ошибка получения излишка: %w", err)
		}
		var banked int64
		if excess != nil {
			banked = excess.Value
		}

		b := Compute(int64(daily), banked, req.EventsCount, req.EventsLimit)
		entry := log.WithFields(log.Fields{
			"channel": channel.ID, "reason": req.Reason,
			"daily": b.DailyCount, "excess": b.Excess, "consumed": b.Consumed, "allowed": b.Allowed,
		})
		if b.Consumed >= req.EventsCount {
			entry.Debug("[QUOTA] дневной бюджет исчерпан")
			outcome = Exhausted
			return nil
		}
		if b.Allowed == 0 {
			entry.Debug("[QUOTA] недостаточно событий для смены")
			outcome = NotAllowed
			return nil
		}
		entry.Info("[QUOTA] смена username разрешена")

		reserved = b.Allowed
		if excess != nil {
			excessID = excess.ID
			return tx.AddExcess(txCtx, excess.ID, reserved)
		}
		e := &models.Excess{
			ChannelID: channel.ID,
			Type:      models.LogUsernameChange,
			Reason:    req.Reason,
			Value:     reserved,
		}
		if err := tx.CreateExcess(txCtx, e); err != nil {
			return err
		}
		excessID = e.ID
		return nil
	})
	if err != nil {
		return Failed, err
	}
	if reserved == 0 {
		return outcome, nil
	}

	ok, rotateErr := l.rotator.Rotate(ctx, channel, req)
	release := reserved
	if rotateErr == nil && ok {
		outcome = Rotated
		release = 1
	}
	settleErr := l.store.InChannelTx(txCtx, req.ChannelID, func(txCtx context.Context, tx Tx) error {
		return tx.AddExcess(txCtx, excessID, -release)
	})
	if settleErr != nil {
		// резерв остаётся завышенным до конца дня: бюджет недорасходуется, но не удваивается
		log.WithError(settleErr).Errorf("[QUOTA] ошибка списания резерва канала %d", req.ChannelID)
		if rotateErr == nil {
			rotateErr = fmt.Errorf("ошибка списания резерва: %w", settleErr)
		}
	}
	if outcome != Rotated {
		return Failed, rotateErr
	}
	return outcome, rotateErr
}
