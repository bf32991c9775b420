package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

// Settings загружает настройки. Если строки нет, возвращаются значения по умолчанию.
func (db *DB) Settings(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()
	err := db.Conn.QueryRowContext(ctx, `
		SELECT archive_channel_id, username_suffix_length, check_post_views_interval,
		       check_post_deletions_interval, check_stats_interval, delete_old_posts_interval,
		       username_change_cooldown, individual_allocations
		FROM settings WHERE id = 1`,
	).Scan(
		&s.ArchiveChannelID,
		&s.UsernameSuffixLength,
		&s.CheckPostViewsIntervalSec,
		&s.CheckPostDeletionsIntervalSec,
		&s.CheckStatsIntervalSec,
		&s.DeleteOldPostsIntervalMin,
		&s.UsernameChangeCooldownMin,
		&s.IndividualAllocations,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	return s, err
}

// UsernameChangeCooldown возвращает текущую паузу между сменами username.
func (db *DB) UsernameChangeCooldown(ctx context.Context) (time.Duration, error) {
	s, err := db.Settings(ctx)
	if err != nil {
		return 0, err
	}
	return s.UsernameChangeCooldown(), nil
}
