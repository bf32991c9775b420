// Package telegram реализует операции с каналами через MTProto-клиент gotd.
package telegram

import (
	"fmt"
	"io"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/naztar0/TgPostsGuardian/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// NewClient создаёт клиент Telegram юзербота с хранилищем сессии и прокси.
// handler может быть nil, если сессии не нужны обновления.
func NewClient(bot models.UserBot, storage session.Storage, handler telegram.UpdateHandler, random io.Reader) (*telegram.Client, error) {
	if storage == nil {
		storage = &session.StorageMemory{}
	}
	opts := telegram.Options{SessionStorage: storage}
	if handler != nil {
		opts.UpdateHandler = handler
	}
	if random != nil {
		opts.Random = random
	}
	if p := bot.Proxy; p != nil {
		addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
		var auth *proxy.Auth
		if p.Login != "" || p.Password != "" {
			auth = &proxy.Auth{User: p.Login, Password: p.Password}
		}
		d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy dialer: %w", err)
		}
		dc, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer missing context")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dc.DialContext})
		log.Infof("[PROXY] %s via %s", bot.Phone, addr)
	}
	return telegram.NewClient(bot.ApiID, bot.ApiHash, opts), nil
}
