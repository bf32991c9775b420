package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	log "github.com/sirupsen/logrus"
)

// Registry хранит обработчики команд слушателей, запущенных в этом процессе.
type Registry struct {
	mu       sync.RWMutex
	handlers map[int64]*Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[int64]*Handler)}
}

// Register связывает обработчик с юзерботом.
func (r *Registry) Register(userbotID int64, h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[userbotID] = h
}

func (r *Registry) Unregister(userbotID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, userbotID)
}

// Get возвращает обработчик юзербота.
func (r *Registry) Get(userbotID int64) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[userbotID]
	return h, ok
}

// Any возвращает обработчик любого запущенного слушателя.
func (r *Registry) Any() (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		return h, true
	}
	return nil, false
}

// UserBots загружает юзерботов.
type UserBots interface {
	UserBot(ctx context.Context, id int64) (models.UserBot, error)
}

// Sender отправляет текст команды юзерботу через мессенджер.
type Sender interface {
	SendAction(ctx context.Context, to models.UserBot, text string) error
}

// OwnerRotator меняет username сам, если сессия владеет каналом, иначе
// передаёт команду update_username владельцу канала.
type OwnerRotator struct {
	self     models.UserBot
	local    quota.Rotator
	registry *Registry
	bots     UserBots
	sender   Sender
}

// NewOwnerRotator создаёт маршрутизатор смены username для сессии self.
func NewOwnerRotator(self models.UserBot, local quota.Rotator, registry *Registry, bots UserBots, sender Sender) *OwnerRotator {
	return &OwnerRotator{self: self, local: local, registry: registry, bots: bots, sender: sender}
}

// Rotate выполняет смену или отправляет запрос владельцу.
func (r *OwnerRotator) Rotate(ctx context.Context, channel models.Channel, req quota.Request) (bool, error) {
	if channel.OwnerID == nil || *channel.OwnerID == r.self.ID {
		return r.local.Rotate(ctx, channel, req)
	}
	owner := *channel.OwnerID

	reason := req.Reason
	data := UpdateUsernameData{
		ChannelID:    channel.PeerID(),
		Reason:       &reason,
		Comment:      req.Comment,
		LimitationID: req.LimitationID,
	}

	if h, ok := r.registry.Get(owner); ok {
		res, err := h.UpdateUsername(ctx, r.self.UserID, data)
		if err != nil {
			return false, err
		}
		return res.Username != channel.Username, nil
	}

	bot, err := r.bots.UserBot(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("ошибка загрузки владельца канала %s: %w", channel, err)
	}
	text, err := Encode(UpdateUsername, data)
	if err != nil {
		return false, err
	}
	log.Infof("[ACTION] запрос смены username канала %s владельцу %d", channel, bot.UserID)
	if err := r.sender.SendAction(ctx, bot, text); err != nil {
		return false, fmt.Errorf("ошибка отправки запроса владельцу: %w", err)
	}
	return true, nil
}
