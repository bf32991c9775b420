package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	log "github.com/sirupsen/logrus"
)

// Sender отправляет текстовые команды другим юзерботам.
type Sender struct {
	api *tg.Client
}

// NewSender создаёт Sender поверх транспорта сессии.
func NewSender(t *Transport) *Sender {
	return &Sender{api: t.api}
}

// SendAction отправляет text юзерботу to, найденному по username.
func (s *Sender) SendAction(ctx context.Context, to models.UserBot, text string) error {
	if to.Username == "" {
		return fmt.Errorf("у юзербота %d не указан username", to.ID)
	}
	resolved, err := s.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: to.Username})
	if err != nil {
		return classify("contacts.resolveUsername", err)
	}
	var peer tg.InputPeerClass
	for _, u := range resolved.GetUsers() {
		if user, ok := u.(*tg.User); ok {
			peer = &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}
			break
		}
	}
	if peer == nil {
		return fmt.Errorf("пользователь @%s не найден", to.Username)
	}
	_, err = s.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: randomID(),
	})
	if err != nil {
		return classify("messages.sendMessage", err)
	}
	log.Infof("[ACTION] команда отправлена юзерботу @%s", to.Username)
	return nil
}
