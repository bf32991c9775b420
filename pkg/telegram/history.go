package telegram

import (
	"context"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
)

// historyIterator постранично обходит историю канала через messages.getHistory.
type historyIterator struct {
	t        *Transport
	channel  models.Channel
	peer     tg.InputPeerClass
	batch    int
	offsetID int
	buf      []transport.Message
	cur      transport.Message
	done     bool
	err      error
}

func (it *historyIterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return false
		}
	}
	it.cur, it.buf = it.buf[0], it.buf[1:]
	return true
}

func (it *historyIterator) Value() transport.Message { return it.cur }

func (it *historyIterator) Err() error { return it.err }

func (it *historyIterator) fetch(ctx context.Context) error {
	if it.peer == nil {
		input, err := it.t.chats.input(ctx, it.channel)
		if err != nil {
			return err
		}
		it.peer = peerOf(input)
	}
	res, err := it.t.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     it.peer,
		OffsetID: it.offsetID,
		Limit:    it.batch,
	})
	if err != nil {
		return classify("messages.getHistory", err)
	}
	raw, err := messagesOf(res)
	if err != nil {
		return &transport.Fault{Op: "messages.getHistory", Err: err}
	}
	if len(raw) < it.batch {
		it.done = true
	}
	for _, m := range raw {
		it.offsetID = m.GetID()
		if msg, ok := m.(*tg.Message); ok {
			it.buf = append(it.buf, convert(msg))
		}
	}
	return nil
}
