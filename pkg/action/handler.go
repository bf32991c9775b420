package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/username"
	log "github.com/sirupsen/logrus"
)

// ErrNoArchive означает, что в настройках не задан архивный канал.
var ErrNoArchive = errors.New("архивный канал не настроен")

// Repository описывает данные для обработки команд.
type Repository interface {
	Settings(ctx context.Context) (models.Settings, error)
	Channel(ctx context.Context, channelID int64) (models.Channel, error)
}

// Changer выполняет смену username канала.
type Changer interface {
	Change(ctx context.Context, channel models.Channel, ch username.Change) (string, error)
}

// Poster выполняет операции с постами архивного канала.
type Poster interface {
	// CopyPost создаёт в архиве новый пост из текста сообщения textID и медиа albumIDs.
	CopyPost(ctx context.Context, archiveID int64, albumIDs []int, textID int) ([]int, error)
	// PublishPost копирует сообщения архива в канал channelPeer (формат -100<id>).
	PublishPost(ctx context.Context, archiveID int64, messageIDs []int, channelPeer int64) ([]int, error)
}

// Handler выполняет команды от имени сессии-слушателя.
type Handler struct {
	repo    Repository
	changer Changer
	poster  Poster
	now     func() time.Time
}

// NewHandler создаёт обработчик команд.
func NewHandler(repo Repository, changer Changer, poster Poster) *Handler {
	return &Handler{repo: repo, changer: changer, poster: poster, now: time.Now}
}

// HandleText разбирает и выполняет команду из сообщения пользователя sender.
func (h *Handler) HandleText(ctx context.Context, sender int64, text string) (string, error) {
	req, err := Parse(text)
	if err != nil {
		return "", err
	}
	return h.Handle(ctx, sender, req)
}

// Handle выполняет команду и возвращает текст ответа.
func (h *Handler) Handle(ctx context.Context, sender int64, req Request) (string, error) {
	res, err := h.Execute(ctx, sender, req)
	if err != nil {
		return "", err
	}
	return FormatResponse(req.Action, res)
}

// Execute выполняет команду и возвращает её результат.
func (h *Handler) Execute(ctx context.Context, sender int64, req Request) (any, error) {
	log.Infof("[ACTION] команда %s от %d", req.Action, sender)

	switch req.Action {
	case UpdateUsername:
		var data UpdateUsernameData
		if err := req.Bind(&data); err != nil {
			return nil, err
		}
		return h.UpdateUsername(ctx, sender, data)
	case MakePost:
		var data MakePostData
		if err := req.Bind(&data); err != nil {
			return nil, err
		}
		return h.MakePost(ctx, data)
	case PublishPost:
		var data PublishPostData
		if err := req.Bind(&data); err != nil {
			return nil, err
		}
		return h.PublishPost(ctx, data)
	}
	log.Errorf("[ACTION] неизвестная команда %s", req.Action)
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
}

// UpdateUsername меняет username канала, если не действует пауза между сменами.
// Ожидание flood wait не выполняется. В ответе возвращается текущий username.
func (h *Handler) UpdateUsername(ctx context.Context, sender int64, data UpdateUsernameData) (UpdateUsernameResult, error) {
	id, err := models.ChannelIDFromPeer(data.ChannelID)
	if err != nil {
		return UpdateUsernameResult{}, err
	}
	channel, err := h.repo.Channel(ctx, id)
	if err != nil {
		return UpdateUsernameResult{}, fmt.Errorf("ошибка загрузки канала %d: %w", id, err)
	}
	settings, err := h.repo.Settings(ctx)
	if err != nil {
		return UpdateUsernameResult{}, fmt.Errorf("ошибка получения настроек: %w", err)
	}

	reason := models.ReasonThirdPartyRequest
	if data.Reason != nil && *data.Reason != "" {
		reason = *data.Reason
	}
	comment := data.Comment
	if comment == "" {
		comment = fmt.Sprintf("Запрос от %d", sender)
	}

	res := UpdateUsernameResult{ChannelID: data.ChannelID, Username: channel.Username}
	last := channel.LastUsernameChange
	if last != nil && h.now().Sub(*last) < settings.UsernameChangeCooldown() {
		log.Infof("[ACTION] смена username канала %s на паузе", channel)
		return res, nil
	}

	name, err := h.changer.Change(ctx, channel, username.Change{
		Reason:       reason,
		LimitationID: data.LimitationID,
		Comment:      comment,
		IgnoreWait:   true,
	})
	if err != nil {
		return UpdateUsernameResult{}, err
	}
	if name != "" {
		res.Username = name
	}
	return res, nil
}

// MakePost создаёт пост в архивном канале.
func (h *Handler) MakePost(ctx context.Context, data MakePostData) (MakePostResult, error) {
	archive, err := h.archive(ctx)
	if err != nil {
		return MakePostResult{}, err
	}
	ids, err := h.poster.CopyPost(ctx, archive, data.AlbumIDs, data.TextID)
	if err != nil {
		return MakePostResult{}, fmt.Errorf("ошибка создания поста: %w", err)
	}
	return MakePostResult{MessageIDs: ids, BotUserID: data.BotUserID}, nil
}

// PublishPost публикует пост архива в канал.
func (h *Handler) PublishPost(ctx context.Context, data PublishPostData) (PublishPostResult, error) {
	archive, err := h.archive(ctx)
	if err != nil {
		return PublishPostResult{}, err
	}
	ids, err := h.poster.PublishPost(ctx, archive, data.MessageIDs, data.ChannelID)
	if err != nil {
		return PublishPostResult{}, fmt.Errorf("ошибка публикации поста: %w", err)
	}
	return PublishPostResult{MessageIDs: ids, AdID: data.AdID}, nil
}

func (h *Handler) archive(ctx context.Context) (int64, error) {
	settings, err := h.repo.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	if settings.ArchiveChannelID == nil {
		return 0, ErrNoArchive
	}
	return *settings.ArchiveChannelID, nil
}
