package telegram

import (
	"context"
	"errors"

	"github.com/gotd/td/session"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// SessionRepository отвечает за хранение сериализованных сессий gotd.
type SessionRepository interface {
	LoadSessionData(ctx context.Context, sessionID int64) ([]byte, error)
	StoreSessionData(ctx context.Context, sessionID int64, data []byte) error
}

// DBSessionStorage хранит и загружает сессию Telegram из таблицы userbot_session_data.
type DBSessionStorage struct {
	Repo      SessionRepository
	SessionID int64
}

// LoadSession загружает данные сессии из БД.
func (s *DBSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	if s == nil || s.Repo == nil {
		return nil, session.ErrNotFound
	}
	data, err := s.Repo.LoadSessionData(ctx, s.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		log.WithError(err).Errorf("[SESSION] ошибка чтения сессии %d", s.SessionID)
		return nil, err
	}
	return data, nil
}

// StoreSession сохраняет данные сессии в БД.
func (s *DBSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if s == nil || s.Repo == nil {
		return session.ErrNotFound
	}
	if err := s.Repo.StoreSessionData(ctx, s.SessionID, data); err != nil {
		log.WithError(err).Errorf("[SESSION] ошибка сохранения сессии %d", s.SessionID)
		return err
	}
	return nil
}
