package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/naztar0/TgPostsGuardian/models"
)

// PostCheck возвращает последнюю проверку поста или nil.
func (db *DB) PostCheck(ctx context.Context, channelID int64, postID int) (*models.PostCheck, error) {
	var c models.PostCheck
	err := db.Conn.QueryRowContext(ctx, `
		SELECT id, channel_id, post_id, post_date, last_check, views
		FROM post_check WHERE channel_id = $1 AND post_id = $2`,
		channelID, postID,
	).Scan(&c.ID, &c.ChannelID, &c.PostID, &c.PostDate, &c.LastCheck, &c.Views)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreatePostCheck сохраняет первую проверку поста.
func (db *DB) CreatePostCheck(ctx context.Context, c *models.PostCheck) error {
	return db.Conn.QueryRowContext(ctx, `
		INSERT INTO post_check (channel_id, post_id, post_date, last_check, views)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_id, post_id) DO UPDATE SET last_check = EXCLUDED.last_check, views = EXCLUDED.views
		RETURNING id`,
		c.ChannelID, c.PostID, c.PostDate, c.LastCheck, c.Views,
	).Scan(&c.ID)
}

// UpdatePostCheck обновляет просмотры и время проверки.
func (db *DB) UpdatePostCheck(ctx context.Context, c *models.PostCheck) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE post_check SET views = $1, last_check = $2 WHERE id = $3`,
		c.Views, c.LastCheck, c.ID)
	return err
}
