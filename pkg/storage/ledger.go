package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
)

// ledgerLockSpace задаёт пространство advisory-блокировок учёта квоты.
const ledgerLockSpace = 0x4c454447

// InChannelTx выполняет fn в транзакции, удерживая advisory-блокировку канала.
// Транзакции учёта одного канала из разных процессов выполняются по очереди.
func (db *DB) InChannelTx(ctx context.Context, channelID int64, fn func(ctx context.Context, tx quota.Tx) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2::text))`, ledgerLockSpace, channelID); err != nil {
			return err
		}
		return fn(ctx, &ledgerTx{tx: tx})
	})
}

// ledgerTx реализует операции учёта внутри транзакции.
type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) Channel(ctx context.Context, channelID int64) (models.Channel, error) {
	return getChannel(ctx, t.tx, channelID)
}

func (t *ledgerTx) CountUsernameChanges(ctx context.Context, channelID int64, since time.Time) (int, error) {
	return countUsernameChanges(ctx, t.tx, channelID, since)
}

func (t *ledgerTx) LatestExcess(ctx context.Context, channelID int64, reason models.UsernameChangeReason, since time.Time) (*models.Excess, error) {
	var e models.Excess
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, created, channel_id, type, reason, value
		FROM excess
		WHERE channel_id = $1 AND type = $2 AND reason = $3 AND created >= $4
		ORDER BY created DESC
		LIMIT 1`,
		channelID, models.LogUsernameChange, reason, since,
	).Scan(&e.ID, &e.Created, &e.ChannelID, &e.Type, &e.Reason, &e.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *ledgerTx) CreateExcess(ctx context.Context, e *models.Excess) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO excess (channel_id, type, reason, value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created`,
		e.ChannelID, e.Type, e.Reason, e.Value,
	).Scan(&e.ID, &e.Created)
}

func (t *ledgerTx) AddExcess(ctx context.Context, excessID int64, delta int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE excess SET value = value + $1 WHERE id = $2`, delta, excessID)
	return err
}
