package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
)

// chatsReloadInterval задаёт минимальный интервал между повторными загрузками списка чатов.
const chatsReloadInterval = time.Minute

// chatCache хранит каналы, доступные сессии. Хеш доступа к каналу у каждого
// аккаунта свой, поэтому он берётся из списка чатов этой сессии.
type chatCache struct {
	api *tg.Client
	now func() time.Time

	mu       sync.Mutex
	channels map[int64]*tg.Channel
	loaded   time.Time
}

func newChatCache(api *tg.Client) *chatCache {
	return &chatCache{api: api, now: time.Now, channels: map[int64]*tg.Channel{}}
}

// load загружает все чаты сессии и обновляет кеш.
func (c *chatCache) load(ctx context.Context) ([]*tg.Channel, error) {
	res, err := c.api.MessagesGetAllChats(ctx, nil)
	if err != nil {
		return nil, classify("messages.getAllChats", err)
	}
	var channels []*tg.Channel
	for _, chat := range res.GetChats() {
		if ch, ok := chat.(*tg.Channel); ok && ch.Broadcast {
			channels = append(channels, ch)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		c.channels[ch.ID] = ch
	}
	c.loaded = c.now()
	return channels, nil
}

func (c *chatCache) cached(id int64) (*tg.Channel, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[id]
	stale := c.now().Sub(c.loaded) >= chatsReloadInterval
	return ch, ok, stale
}

// channel возвращает канал по ID в любом формате.
func (c *chatCache) channel(ctx context.Context, id int64) (*tg.Channel, error) {
	id, err := models.ChannelIDFromPeer(id)
	if err != nil {
		return nil, err
	}
	ch, ok, stale := c.cached(id)
	if ok {
		return ch, nil
	}
	if stale {
		if _, err := c.load(ctx); err != nil {
			return nil, err
		}
		if ch, ok, _ = c.cached(id); ok {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("канал %d недоступен сессии", id)
}

// input возвращает InputChannel для канала. Если сессия не видит канал,
// используется хеш доступа из БД.
func (c *chatCache) input(ctx context.Context, ch models.Channel) (*tg.InputChannel, error) {
	found, err := c.channel(ctx, ch.ID)
	if err == nil {
		return &tg.InputChannel{ChannelID: found.ID, AccessHash: found.AccessHash}, nil
	}
	if ch.AccessHash != 0 {
		return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
	}
	return nil, err
}

func peerOf(ch *tg.InputChannel) *tg.InputPeerChannel {
	return &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}
}
