package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// ChannelRepository отвечает за хранение сведений о каналах.
type ChannelRepository interface {
	Channels(ctx context.Context, f storage.ChannelFilter) ([]models.Channel, error)
	UpdateChannelInfo(ctx context.Context, ch models.Channel) error
	SetChannelOwner(ctx context.Context, userbotID int64, channelIDs []int64) error
}

// RefreshChannels обновляет название, username и защиту контента каналов,
// доступных сессии, и назначает юзербота владельцем созданных им каналов.
func (t *Transport) RefreshChannels(ctx context.Context, repo ChannelRepository, userbotID int64) error {
	visible, err := t.chats.load(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]*tg.Channel, len(visible))
	for _, ch := range visible {
		byID[ch.ID] = ch
	}

	stored, err := repo.Channels(ctx, storage.ChannelFilter{})
	if err != nil {
		return fmt.Errorf("ошибка загрузки каналов: %w", err)
	}
	var owned []int64
	updated := 0
	for _, ch := range stored {
		remote, ok := byID[ch.ID]
		if !ok {
			continue
		}
		if remote.Creator && (ch.OwnerID == nil || *ch.OwnerID != userbotID) {
			owned = append(owned, ch.ID)
		}
		merged, changed := mergeChannel(ch, remote)
		if !changed {
			continue
		}
		if err := repo.UpdateChannelInfo(ctx, merged); err != nil {
			return fmt.Errorf("ошибка обновления канала %d: %w", ch.ID, err)
		}
		updated++
	}
	if err := repo.SetChannelOwner(ctx, userbotID, owned); err != nil {
		return fmt.Errorf("ошибка назначения владельца: %w", err)
	}
	log.WithFields(log.Fields{"userbot": userbotID, "updated": updated, "owned": len(owned)}).
		Info("[CHANNELS] сведения о каналах обновлены")
	return nil
}

// mergeChannel переносит в stored данные канала из мессенджера.
// Хеш доступа сохраняется только от создателя канала.
func mergeChannel(stored models.Channel, remote *tg.Channel) (models.Channel, bool) {
	merged := stored
	merged.Title = remote.Title
	if username, ok := remote.GetUsername(); ok {
		merged.Username = username
	}
	merged.HasProtectedContent = remote.Noforwards
	if remote.Creator || merged.AccessHash == 0 {
		merged.AccessHash = remote.AccessHash
	}
	return merged, merged != stored
}
