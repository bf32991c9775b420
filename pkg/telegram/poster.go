package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
)

// Poster копирует посты архивного канала.
type Poster struct {
	api   *tg.Client
	chats *chatCache
}

// NewPoster создаёт Poster поверх транспорта сессии.
func NewPoster(t *Transport) *Poster {
	return &Poster{api: t.api, chats: t.chats}
}

func (p *Poster) peer(ctx context.Context, id int64) (*tg.InputPeerChannel, *tg.InputChannel, error) {
	ch, err := p.chats.channel(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	input := &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
	return peerOf(input), input, nil
}

func (p *Poster) messages(ctx context.Context, channel *tg.InputChannel, ids []int) ([]*tg.Message, error) {
	input := make([]tg.InputMessageClass, len(ids))
	for i, id := range ids {
		input[i] = &tg.InputMessageID{ID: id}
	}
	res, err := p.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{Channel: channel, ID: input})
	if err != nil {
		return nil, classify("channels.getMessages", err)
	}
	raw, err := messagesOf(res)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*tg.Message, len(raw))
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			byID[msg.ID] = msg
		}
	}
	out := make([]*tg.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := byID[id]; ok {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("сообщения %v не найдены", ids)
	}
	return out, nil
}

// CopyPost создаёт в архиве пост из текста сообщения textID и медиа albumIDs.
func (p *Poster) CopyPost(ctx context.Context, archiveID int64, albumIDs []int, textID int) ([]int, error) {
	peer, archive, err := p.peer(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	text, err := p.messages(ctx, archive, []int{textID})
	if err != nil {
		return nil, err
	}
	var album []*tg.Message
	if len(albumIDs) > 0 {
		if album, err = p.messages(ctx, archive, albumIDs); err != nil {
			return nil, err
		}
	}
	return p.send(ctx, peer, text[0], album)
}

// PublishPost копирует сообщения архива в канал channelPeer.
func (p *Poster) PublishPost(ctx context.Context, archiveID int64, messageIDs []int, channelPeer int64) ([]int, error) {
	_, archive, err := p.peer(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	target, _, err := p.peer(ctx, channelPeer)
	if err != nil {
		return nil, err
	}
	msgs, err := p.messages(ctx, archive, messageIDs)
	if err != nil {
		return nil, err
	}
	var album []*tg.Message
	if msgs[0].Media != nil {
		album = msgs
	}
	return p.send(ctx, target, msgs[0], album)
}

// send публикует текст text с вложениями album и возвращает ID новых сообщений.
func (p *Poster) send(ctx context.Context, peer tg.InputPeerClass, text *tg.Message, album []*tg.Message) ([]int, error) {
	var media []tg.InputMediaClass
	for _, m := range album {
		if in, ok := inputMedia(m); ok {
			media = append(media, in)
		}
	}

	switch len(media) {
	case 0:
		rid := randomID()
		res, err := p.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:     peer,
			Message:  text.Message,
			Entities: text.Entities,
			RandomID: rid,
		})
		if err != nil {
			return nil, classify("messages.sendMessage", err)
		}
		return sentIDs(res, []int64{rid}), nil
	case 1:
		rid := randomID()
		res, err := p.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
			Peer:     peer,
			Media:    media[0],
			Message:  text.Message,
			Entities: text.Entities,
			RandomID: rid,
		})
		if err != nil {
			return nil, classify("messages.sendMedia", err)
		}
		return sentIDs(res, []int64{rid}), nil
	}

	rids := randomIDs(len(media))
	multi := make([]tg.InputSingleMedia, len(media))
	for i, in := range media {
		multi[i] = tg.InputSingleMedia{Media: in, RandomID: rids[i]}
	}
	multi[0].Message = text.Message
	multi[0].Entities = text.Entities
	res, err := p.api.MessagesSendMultiMedia(ctx, &tg.MessagesSendMultiMediaRequest{
		Peer:       peer,
		MultiMedia: multi,
	})
	if err != nil {
		return nil, classify("messages.sendMultiMedia", err)
	}
	return sentIDs(res, rids), nil
}

// inputMedia возвращает ссылку на фото или документ сообщения для повторной отправки.
func inputMedia(m *tg.Message) (tg.InputMediaClass, bool) {
	switch media := m.Media.(type) {
	case *tg.MessageMediaPhoto:
		if photo, ok := media.Photo.(*tg.Photo); ok {
			return &tg.InputMediaPhoto{ID: &tg.InputPhoto{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
			}}, true
		}
	case *tg.MessageMediaDocument:
		if doc, ok := media.Document.(*tg.Document); ok {
			return &tg.InputMediaDocument{ID: &tg.InputDocument{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			}}, true
		}
	}
	return nil, false
}

// sentIDs извлекает ID отправленных сообщений в порядке randomIDs.
func sentIDs(res tg.UpdatesClass, randomIDs []int64) []int {
	var updates []tg.UpdateClass
	switch u := res.(type) {
	case *tg.UpdateShortSentMessage:
		return []int{u.ID}
	case *tg.Updates:
		updates = u.Updates
	case *tg.UpdatesCombined:
		updates = u.Updates
	}
	byRandom := make(map[int64]int, len(updates))
	for _, up := range updates {
		if m, ok := up.(*tg.UpdateMessageID); ok {
			byRandom[m.RandomID] = m.ID
		}
	}
	ids := make([]int, 0, len(randomIDs))
	for _, rid := range randomIDs {
		if id, ok := byRandom[rid]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
