package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

func createLog(ctx context.Context, q queryer, e *models.Log) error {
	return q.QueryRowContext(ctx, `
		INSERT INTO log (type, userbot_id, channel_id, post_id, post_date, post_views, limitation_id,
		                 reason, comment, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created`,
		e.Type, e.UserBotID, e.ChannelID, e.PostID, e.PostDate, e.PostViews, e.LimitationID,
		e.Reason, e.Comment, e.Success, e.ErrorMessage,
	).Scan(&e.ID, &e.Created)
}

// CreateLog добавляет запись в журнал.
func (db *DB) CreateLog(ctx context.Context, e *models.Log) error {
	if err := createLog(ctx, db.Conn, e); err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	return nil
}

// FiredLimitations возвращает ID ограничений, упомянутых в журнале канала начиная с since.
func (db *DB) FiredLimitations(ctx context.Context, channelID int64, since time.Time) (map[int64]bool, error) {
	rows, err := db.Conn.QueryContext(ctx, `
		SELECT DISTINCT limitation_id FROM log
		WHERE channel_id = $1 AND created >= $2 AND limitation_id IS NOT NULL`,
		channelID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки журнала: %w", err)
	}
	defer rows.Close()

	fired := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		fired[id] = true
	}
	return fired, rows.Err()
}

// CountDeletedPosts считает разные посты, успешно удалённые начиная с since.
func (db *DB) CountDeletedPosts(ctx context.Context, channelID int64, since time.Time) (int, error) {
	var n int
	err := db.Conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT post_id) FROM log
		WHERE channel_id = $1 AND type = $2 AND success AND created >= $3`,
		channelID, models.LogDeletion, since,
	).Scan(&n)
	return n, err
}

func countUsernameChanges(ctx context.Context, q queryer, channelID int64, since time.Time) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM log
		WHERE channel_id = $1 AND type = $2 AND success AND created >= $3`,
		channelID, models.LogUsernameChange, since,
	).Scan(&n)
	return n, err
}
