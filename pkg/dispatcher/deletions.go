package dispatcher

import (
	"context"
	"fmt"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/policy"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	log "github.com/sirupsen/logrus"
)

// CheckDeletions запрашивает смену username каналов, в которых за день
// удалено больше постов, чем deletionsCountForUsernameChange.
func (d *Dispatcher) CheckDeletions(ctx context.Context, channels []models.Channel) error {
	return d.forEach(ctx, "deletions", channels, func(ctx context.Context, entry *log.Entry, ch models.Channel) error {
		if ch.DeletionsCountForUsernameChange <= 0 {
			return nil
		}
		n, err := d.repo.CountDeletedPosts(ctx, ch.ID, policy.Day(d.now()))
		if err != nil {
			return fmt.Errorf("ошибка подсчёта удалений: %w", err)
		}
		entry.Infof("[DELETIONS] канал %s: удалений за день %d", ch, n)
		if n == 0 {
			return nil
		}
		return d.rotate(ctx, entry, quota.Request{
			ChannelID:   ch.ID,
			Reason:      models.ReasonDeletionsLimit,
			Comment:     fmt.Sprintf("Удалений за день %d, лимит %d", n, ch.DeletionsCountForUsernameChange),
			EventsCount: int64(n),
			EventsLimit: int64(ch.DeletionsCountForUsernameChange),
		})
	})
}

// DeleteOldPosts удаляет посты старше deletePostsAfterDays, не больше сотни за проход.
func (d *Dispatcher) DeleteOldPosts(ctx context.Context, channels []models.Channel) error {
	return d.forEach(ctx, "old_posts", channels, func(ctx context.Context, entry *log.Entry, ch models.Channel) error {
		if ch.DeletePostsAfterDays <= 0 {
			return nil
		}
		before := d.now().AddDate(0, 0, -ch.DeletePostsAfterDays)
		msgs, err := d.transport.OlderThan(ctx, ch, before, oldPostsLimit)
		if err != nil {
			return fmt.Errorf("ошибка получения старых постов: %w", err)
		}
		entry.Infof("[CLEANUP] канал %s: старых постов %d", ch, len(msgs))
		if len(msgs) == 0 {
			return nil
		}
		ids := make([]int, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		if err := d.transport.DeleteMessages(ctx, ch, ids); err != nil {
			return fmt.Errorf("ошибка удаления старых постов: %w", err)
		}
		return nil
	})
}
