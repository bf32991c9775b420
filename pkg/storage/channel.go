package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/naztar0/TgPostsGuardian/models"
)

// ErrNotFound означает, что запись не найдена.
var ErrNotFound = errors.New("запись не найдена")

const channelColumns = `c.channel_id, c.access_hash, c.title, c.username, c.owner_id, c.has_protected_content,
	c.last_username_change, c.history_days_limit, c.delete_albums, c.republish_today_posts,
	c.deletions_count_for_username_change, c.delete_posts_after_days`

type scanner interface {
	Scan(dest ...any) error
}

func scanChannel(row scanner) (models.Channel, error) {
	var ch models.Channel
	err := row.Scan(
		&ch.ID,
		&ch.AccessHash,
		&ch.Title,
		&ch.Username,
		&ch.OwnerID,
		&ch.HasProtectedContent,
		&ch.LastUsernameChange,
		&ch.HistoryDaysLimit,
		&ch.DeleteAlbums,
		&ch.RepublishTodayPosts,
		&ch.DeletionsCountForUsernameChange,
		&ch.DeletePostsAfterDays,
	)
	return ch, err
}

func getChannel(ctx context.Context, q queryer, channelID int64) (models.Channel, error) {
	row := q.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channel c WHERE c.channel_id = $1`, channelID)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, fmt.Errorf("канал %d: %w", channelID, ErrNotFound)
	}
	return ch, err
}

// Channel загружает канал по ID.
func (db *DB) Channel(ctx context.Context, channelID int64) (models.Channel, error) {
	return getChannel(ctx, db.Conn, channelID)
}

// ChannelFilter задаёт условия выборки каналов для цикла проверки.
type ChannelFilter struct {
	// LimitationTypes отбирает каналы с ограничением одного из типов.
	LimitationTypes []models.LimitationType
	// DeletionsLimit отбирает каналы с лимитом удалений для смены username.
	DeletionsLimit bool
	// OldPosts отбирает каналы с удалением старых постов.
	OldPosts bool
}

// Channels возвращает каналы по фильтру, упорядоченные по ID.
func (db *DB) Channels(ctx context.Context, f ChannelFilter) ([]models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channel c WHERE TRUE`
	var args []any
	if len(f.LimitationTypes) > 0 {
		types := make([]string, len(f.LimitationTypes))
		for i, t := range f.LimitationTypes {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		query += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM limitation l WHERE l.channel_id = c.channel_id AND l.type = ANY($%d))`, len(args))
	}
	if f.DeletionsLimit {
		query += ` AND c.deletions_count_for_username_change > 0`
	}
	if f.OldPosts {
		query += ` AND c.delete_posts_after_days > 0`
	}
	query += ` ORDER BY c.channel_id`

	rows, err := db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки каналов: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения канала: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateChannelUsername сохраняет новый username и время смены.
func (db *DB) UpdateChannelUsername(ctx context.Context, channelID int64, username string, at time.Time) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE channel SET username = $1, last_username_change = $2 WHERE channel_id = $3`,
		username, at, channelID)
	return err
}

// UpdateChannelInfo обновляет данные канала, полученные из мессенджера.
func (db *DB) UpdateChannelInfo(ctx context.Context, ch models.Channel) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE channel SET access_hash = $1, title = $2, username = $3, has_protected_content = $4
		 WHERE channel_id = $5`,
		ch.AccessHash, ch.Title, ch.Username, ch.HasProtectedContent, ch.ID)
	return err
}

// SetChannelOwner назначает владельца каналов, в которых юзербот является создателем.
func (db *DB) SetChannelOwner(ctx context.Context, userbotID int64, channelIDs []int64) error {
	if len(channelIDs) == 0 {
		return nil
	}
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE channel SET owner_id = $1 WHERE channel_id = ANY($2)`,
		userbotID, pq.Array(channelIDs))
	return err
}
