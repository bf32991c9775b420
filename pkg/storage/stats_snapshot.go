package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

// LatestSnapshot возвращает последний снимок статистики начиная с since или nil.
// key == nil означает снимок общей суммы.
func (db *DB) LatestSnapshot(ctx context.Context, channelID int64, typ models.StatsType, key *string, since time.Time) (*models.StatsSnapshot, error) {
	var s models.StatsSnapshot
	err := db.Conn.QueryRowContext(ctx, `
		SELECT id, created, channel_id, type, key, value
		FROM stats_snapshot
		WHERE channel_id = $1 AND type = $2 AND key IS NOT DISTINCT FROM $3 AND created >= $4
		ORDER BY created DESC
		LIMIT 1`,
		channelID, typ, key, since,
	).Scan(&s.ID, &s.Created, &s.ChannelID, &s.Type, &s.Key, &s.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSnapshot сохраняет снимок статистики.
func (db *DB) CreateSnapshot(ctx context.Context, s *models.StatsSnapshot) error {
	return db.Conn.QueryRowContext(ctx, `
		INSERT INTO stats_snapshot (channel_id, type, key, value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created`,
		s.ChannelID, s.Type, s.Key, s.Value,
	).Scan(&s.ID, &s.Created)
}
