package telegram

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/lease"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
)

// historyBatch задаёт размер страницы истории канала.
const historyBatch = 100

// albumWindow задаёт максимальное расстояние между ID сообщений одного альбома.
const albumWindow = 9

// Transport выполняет операции с каналами от имени одной сессии.
type Transport struct {
	api    *tg.Client
	chats  *chatCache
	leases *lease.Manager
}

var _ transport.Transport = (*Transport)(nil)

// NewTransport создаёт транспорт поверх invoker сессии. Вызовы ограничиваются
// rps в секунду. leases используется для статистики из другого дата-центра.
func NewTransport(invoker tg.Invoker, rps int, leases *lease.Manager) *Transport {
	api := tg.NewClient(paced(invoker, rps))
	return &Transport{api: api, chats: newChatCache(api), leases: leases}
}

// API возвращает RPC-клиент сессии.
func (t *Transport) API() *tg.Client { return t.api }

func randomID() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func randomIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = randomID()
	}
	return ids
}

// messagesOf возвращает сообщения из ответа на запрос истории.
func messagesOf(res tg.MessagesMessagesClass) ([]tg.MessageClass, error) {
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		return r.Messages, nil
	case *tg.MessagesMessagesSlice:
		return r.Messages, nil
	case *tg.MessagesMessages:
		return r.Messages, nil
	}
	return nil, fmt.Errorf("unexpected messages type %T", res)
}

func convert(m *tg.Message) transport.Message {
	views, _ := m.GetViews()
	grouped, _ := m.GetGroupedID()
	return transport.Message{
		ID:        m.ID,
		Date:      time.Unix(int64(m.Date), 0),
		Views:     int64(views),
		GroupedID: grouped,
		Text:      m.Message,
		HasMedia:  m.Media != nil,
	}
}

// Messages обходит историю канала от новых сообщений к старым.
func (t *Transport) Messages(channel models.Channel) transport.MessageIterator {
	return &historyIterator{t: t, channel: channel, batch: historyBatch}
}

// OlderThan возвращает до limit сообщений, опубликованных раньше before.
func (t *Transport) OlderThan(ctx context.Context, channel models.Channel, before time.Time, limit int) ([]transport.Message, error) {
	input, err := t.chats.input(ctx, channel)
	if err != nil {
		return nil, err
	}
	res, err := t.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:       peerOf(input),
		OffsetDate: int(before.Unix()),
		Limit:      limit,
	})
	if err != nil {
		return nil, classify("messages.getHistory", err)
	}
	raw, err := messagesOf(res)
	if err != nil {
		return nil, &transport.Fault{Op: "messages.getHistory", Err: err}
	}
	var out []transport.Message
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok && msg.Date < int(before.Unix()) {
			out = append(out, convert(msg))
		}
	}
	return out, nil
}

// rawMessages загружает сообщения канала по ID.
func (t *Transport) rawMessages(ctx context.Context, channel models.Channel, ids []int) ([]*tg.Message, error) {
	input := make([]tg.InputMessageClass, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			input = append(input, &tg.InputMessageID{ID: id})
		}
	}
	channelInput, err := t.chats.input(ctx, channel)
	if err != nil {
		return nil, err
	}
	res, err := t.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: channelInput,
		ID:      input,
	})
	if err != nil {
		return nil, classify("channels.getMessages", err)
	}
	raw, err := messagesOf(res)
	if err != nil {
		return nil, &transport.Fault{Op: "channels.getMessages", Err: err}
	}
	var out []*tg.Message
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MediaGroup возвращает сообщения альбома, в который входит msg, по возрастанию ID.
func (t *Transport) MediaGroup(ctx context.Context, channel models.Channel, msg transport.Message) ([]transport.Message, error) {
	if !msg.Album() {
		return []transport.Message{msg}, nil
	}
	ids := make([]int, 0, 2*albumWindow+1)
	for id := msg.ID - albumWindow; id <= msg.ID+albumWindow; id++ {
		ids = append(ids, id)
	}
	raw, err := t.rawMessages(ctx, channel, ids)
	if err != nil {
		return nil, err
	}
	var group []transport.Message
	for _, m := range raw {
		if gid, ok := m.GetGroupedID(); ok && gid == msg.GroupedID {
			group = append(group, convert(m))
		}
	}
	if len(group) == 0 {
		group = append(group, msg)
	}
	return group, nil
}

// DeleteMessages удаляет сообщения канала.
func (t *Transport) DeleteMessages(ctx context.Context, channel models.Channel, ids []int) error {
	input, err := t.chats.input(ctx, channel)
	if err != nil {
		return err
	}
	_, err = t.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
		Channel: input,
		ID:      ids,
	})
	return classify("channels.deleteMessages", err)
}

// RenameChannel меняет публичное имя канала.
func (t *Transport) RenameChannel(ctx context.Context, channel models.Channel, username string) error {
	input, err := t.chats.input(ctx, channel)
	if err != nil {
		return err
	}
	_, err = t.api.ChannelsUpdateUsername(ctx, &tg.ChannelsUpdateUsernameRequest{
		Channel:  input,
		Username: username,
	})
	return classify("channels.updateUsername", err)
}
