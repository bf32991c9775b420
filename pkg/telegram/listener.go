package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/pkg/action"
	log "github.com/sirupsen/logrus"
)

// ServiceUserID хранит ID служебного аккаунта Telegram.
const ServiceUserID = 777000

// ActionHandler выполняет текстовые команды.
type ActionHandler interface {
	HandleText(ctx context.Context, sender int64, text string) (string, error)
}

// ServiceRepository сохраняет служебные сообщения Telegram.
type ServiceRepository interface {
	SaveServiceMessage(ctx context.Context, userbotID int64, text string, at time.Time) error
}

// Listener обрабатывает входящие личные сообщения сессии-слушателя:
// команды ACTION и служебные сообщения Telegram.
type Listener struct {
	repo      ServiceRepository
	userbotID int64
	now       func() time.Time

	mu      sync.RWMutex
	api     *tg.Client
	handler ActionHandler
}

// NewListener создаёт слушателя. Команды обрабатываются после Attach.
func NewListener(repo ServiceRepository, userbotID int64) *Listener {
	return &Listener{repo: repo, userbotID: userbotID, now: time.Now}
}

// Attach подключает клиент для ответов и обработчик команд.
func (l *Listener) Attach(api *tg.Client, handler ActionHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.api = api
	l.handler = handler
}

// Dispatcher возвращает обработчик обновлений для клиента gotd.
func (l *Listener) Dispatcher() tg.UpdateDispatcher {
	d := tg.NewUpdateDispatcher()
	d.OnNewMessage(l.onNewMessage)
	return d
}

func (l *Listener) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	from, ok := msg.PeerID.(*tg.PeerUser)
	if !ok {
		return nil
	}
	reply := l.handleMessage(ctx, from.UserID, msg.Message)
	if reply == "" {
		return nil
	}

	l.mu.RLock()
	api := l.api
	l.mu.RUnlock()
	user, ok := e.Users[from.UserID]
	if api == nil || !ok {
		log.Warnf("[ACTION] некому отправить ответ пользователю %d", from.UserID)
		return nil
	}
	_, err := api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
		Message:  reply,
		ReplyTo:  &tg.InputReplyToMessage{ReplyToMsgID: msg.ID},
		RandomID: randomID(),
	})
	if err != nil {
		log.WithError(err).Errorf("[ACTION] ошибка отправки ответа пользователю %d", from.UserID)
	}
	return nil
}

// handleMessage обрабатывает текст от пользователя sender и возвращает ответ.
func (l *Listener) handleMessage(ctx context.Context, sender int64, text string) string {
	if sender == ServiceUserID {
		log.Infof("[SERVICE] служебное сообщение для юзербота %d: %s", l.userbotID, text)
		if err := l.repo.SaveServiceMessage(ctx, l.userbotID, text, l.now()); err != nil {
			log.WithError(err).Error("[SERVICE] ошибка сохранения служебного сообщения")
		}
		return ""
	}
	if !action.IsAction(text) {
		return ""
	}

	l.mu.RLock()
	handler := l.handler
	l.mu.RUnlock()
	if handler == nil {
		log.Warnf("[ACTION] команда от %d до готовности сессии", sender)
		return ""
	}
	reply, err := handler.HandleText(ctx, sender, text)
	if err != nil {
		log.WithError(err).Errorf("[ACTION] ошибка выполнения команды от %d", sender)
		return ""
	}
	return reply
}
