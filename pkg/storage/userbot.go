package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

const userbotColumns = `u.id, u.user_id, u.phone, u.username, u.api_id, u.api_hash, u.is_active, u.proxy_id,
	u.last_service_message, u.last_service_message_date,
	p.id, p.ip, p.port, p.login, p.password`

func scanUserBot(row scanner, extra ...any) (models.UserBot, error) {
	var (
		u                         models.UserBot
		proxyID, proxyPort        sql.NullInt64
		proxyIP, proxyLogin, pass sql.NullString
	)
	dest := []any{
		&u.ID,
		&u.UserID,
		&u.Phone,
		&u.Username,
		&u.ApiID,
		&u.ApiHash,
		&u.IsActive,
		&u.ProxyID,
		&u.LastServiceMessage,
		&u.LastServiceMessageDate,
		&proxyID,
		&proxyIP,
		&proxyPort,
		&proxyLogin,
		&pass,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.UserBot{}, err
	}
	if proxyID.Valid {
		u.Proxy = &models.Proxy{
			ID:       int(proxyID.Int64),
			IP:       proxyIP.String,
			Port:     int(proxyPort.Int64),
			Login:    proxyLogin.String,
			Password: pass.String,
		}
	}
	return u, nil
}

// UserBot загружает юзербота вместе с прокси.
func (db *DB) UserBot(ctx context.Context, id int64) (models.UserBot, error) {
	row := db.Conn.QueryRowContext(ctx, `SELECT `+userbotColumns+`
		FROM userbot u LEFT JOIN proxy p ON u.proxy_id = p.id
		WHERE u.id = $1`, id)
	u, err := scanUserBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserBot{}, fmt.Errorf("юзербот %d: %w", id, ErrNotFound)
	}
	return u, err
}

// ActiveSessions возвращает сессии активных юзерботов, упорядоченные по ID.
func (db *DB) ActiveSessions(ctx context.Context) ([]models.UserBotSession, error) {
	rows, err := db.Conn.QueryContext(ctx, `SELECT `+userbotColumns+`, s.id, s.mode, s.ping_time
		FROM userbot_session s
		JOIN userbot u ON s.userbot_id = u.id
		LEFT JOIN proxy p ON u.proxy_id = p.id
		WHERE u.is_active
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки сессий: %w", err)
	}
	defer rows.Close()

	var sessions []models.UserBotSession
	for rows.Next() {
		var s models.UserBotSession
		u, err := scanUserBot(rows, &s.ID, &s.Mode, &s.PingTime)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
		}
		s.UserBot = u
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Ping отмечает, что сессия работает.
func (db *DB) Ping(ctx context.Context, sessionID int64, at time.Time) error {
	_, err := db.Conn.ExecContext(ctx, `UPDATE userbot_session SET ping_time = $1 WHERE id = $2`, at, sessionID)
	return err
}

// UpdateUserBotIdentity сохраняет Telegram ID и username юзербота.
func (db *DB) UpdateUserBotIdentity(ctx context.Context, id, userID int64, username string) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE userbot SET user_id = $1, username = $2 WHERE id = $3`, userID, username, id)
	return err
}

// SaveServiceMessage сохраняет последнее служебное сообщение Telegram для юзербота.
func (db *DB) SaveServiceMessage(ctx context.Context, userbotID int64, text string, at time.Time) error {
	_, err := db.Conn.ExecContext(ctx,
		`UPDATE userbot SET last_service_message = $1, last_service_message_date = $2 WHERE id = $3`,
		text, at, userbotID)
	return err
}

// LoadSessionData возвращает сохранённые данные сессии gotd.
func (db *DB) LoadSessionData(ctx context.Context, sessionID int64) ([]byte, error) {
	var data string
	err := db.Conn.QueryRowContext(ctx,
		`SELECT data_json FROM userbot_session_data WHERE session_id = $1`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// StoreSessionData сохраняет данные сессии gotd.
func (db *DB) StoreSessionData(ctx context.Context, sessionID int64, data []byte) error {
	_, err := db.Conn.ExecContext(ctx,
		"INSERT INTO userbot_session_data (session_id, data_json) VALUES ($1, $2) "+
			"ON CONFLICT (session_id) DO UPDATE SET data_json = EXCLUDED.data_json, date_time = NOW()",
		sessionID, string(data))
	return err
}
