package telegram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
)

// Republish публикует копии сообщений в том же канале.
// В каналах с защищённым контентом пересылка запрещена, поэтому фото
// скачивается и загружается заново, а текст отправляется отдельным сообщением.
func (t *Transport) Republish(ctx context.Context, channel models.Channel, msgs []transport.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	input, err := t.chats.input(ctx, channel)
	if err != nil {
		return err
	}
	peer := peerOf(input)
	if !channel.HasProtectedContent {
		_, err := t.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
			FromPeer:   peer,
			ToPeer:     peer,
			ID:         ids,
			RandomID:   randomIDs(len(ids)),
			DropAuthor: true,
		})
		return classify("messages.forwardMessages", err)
	}

	raw, err := t.rawMessages(ctx, channel, ids)
	if err != nil {
		return err
	}
	for _, m := range raw {
		if err := t.resend(ctx, peer, m); err != nil {
			return err
		}
	}
	return nil
}

// resend повторно публикует сообщение без пересылки.
func (t *Transport) resend(ctx context.Context, peer *tg.InputPeerChannel, m *tg.Message) error {
	if media, ok := m.Media.(*tg.MessageMediaPhoto); ok {
		if photo, ok := media.Photo.(*tg.Photo); ok {
			file, err := t.reupload(ctx, photo)
			if err != nil {
				return err
			}
			_, err = t.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
				Peer:     peer,
				Media:    &tg.InputMediaUploadedPhoto{File: file},
				Message:  m.Message,
				Entities: m.Entities,
				RandomID: randomID(),
			})
			return classify("messages.sendMedia", err)
		}
	}
	if m.Message == "" {
		return nil
	}
	_, err := t.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  m.Message,
		Entities: m.Entities,
		RandomID: randomID(),
	})
	return classify("messages.sendMessage", err)
}

// reupload скачивает самый крупный размер фото и загружает его как новый файл.
func (t *Transport) reupload(ctx context.Context, photo *tg.Photo) (tg.InputFileClass, error) {
	var (
		size string
		area int
	)
	for _, s := range photo.Sizes {
		var typ string
		var w, h int
		switch v := s.(type) {
		case *tg.PhotoSize:
			typ, w, h = v.Type, v.W, v.H
		case *tg.PhotoSizeProgressive:
			typ, w, h = v.Type, v.W, v.H
		default:
			continue
		}
		if w*h >= area {
			size, area = typ, w*h
		}
	}
	if size == "" {
		return nil, fmt.Errorf("фото %d без доступных размеров", photo.ID)
	}
	loc := &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     size,
	}
	var buf bytes.Buffer
	if _, err := downloader.NewDownloader().Download(t.api, loc).Stream(ctx, &buf); err != nil {
		return nil, classify("upload.getFile", err)
	}
	file, err := uploader.NewUploader(t.api).FromBytes(ctx, "photo.jpg", buf.Bytes())
	if err != nil {
		return nil, classify("upload.saveFilePart", err)
	}
	return file, nil
}
