package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/lease"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// ErrUnauthorized означает, что сессия не авторизована. Вход выполняется вне сервиса.
var ErrUnauthorized = errors.New("сессия не авторизована")

// Session описывает запущенную сессию юзербота.
type Session struct {
	Model     models.UserBotSession
	Self      *tg.User
	Transport *Transport
	Leases    *lease.Manager
}

// Options содержит параметры запуска сессии.
type Options struct {
	// RPS задаёт ограничение частоты вызовов RPC.
	RPS int
	// LeaseIdle задаёт время простоя соединения с другим дата-центром до закрытия.
	LeaseIdle time.Duration
	// Updates задаёт обработчик обновлений, nil для сессий без подписки.
	Updates telegram.UpdateHandler
}

// DCDialer открывает соединения клиента с другими дата-центрами.
func DCDialer(client *telegram.Client) lease.Dialer {
	return lease.DialerFunc(func(ctx context.Context, dc int) (lease.Conn, error) {
		conn, err := client.DC(ctx, dc, 1)
		if err != nil {
			return nil, &transport.Fault{Op: fmt.Sprintf("dc %d", dc), Err: err}
		}
		return conn, nil
	})
}

// Run подключает сессию и выполняет fn, пока контекст не отменён или fn не завершилась.
func Run(ctx context.Context, s models.UserBotSession, repo SessionRepository, opts Options, fn func(ctx context.Context, sess *Session) error) error {
	client, err := NewClient(s.UserBot, &DBSessionStorage{Repo: repo, SessionID: s.ID}, opts.Updates, nil)
	if err != nil {
		return err
	}
	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return &transport.Fault{Op: "auth.status", Err: err}
		}
		if !status.Authorized {
			return fmt.Errorf("юзербот %s: %w", s.UserBot.Phone, ErrUnauthorized)
		}

		idle := opts.LeaseIdle
		if idle <= 0 {
			idle = lease.DefaultIdleTimeout
		}
		leases := lease.NewManager(DCDialer(client), idle)
		defer leases.Close()
		go leases.Run(ctx, idle/2)

		log.WithFields(log.Fields{"session": s.ID, "mode": s.Mode, "user": status.User.ID}).
			Info("[SESSION] сессия подключена")
		return fn(ctx, &Session{
			Model:     s,
			Self:      status.User,
			Transport: NewTransport(client, opts.RPS, leases),
			Leases:    leases,
		})
	})
}
