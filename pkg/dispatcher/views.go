package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/evaluator"
	"github.com/naztar0/TgPostsGuardian/pkg/metrics"
	"github.com/naztar0/TgPostsGuardian/pkg/policy"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// candidate описывает пост (или альбом), превысивший порог ограничения.
type candidate struct {
	limitation models.Limitation
	messages   []transport.Message
	// events и limit передаются в учёт квоты
	events int64
	limit  int64
}

func (c candidate) first() transport.Message { return c.messages[0] }

func (c candidate) ids() []int {
	ids := make([]int, len(c.messages))
	for i, m := range c.messages {
		ids[i] = m.ID
	}
	return ids
}

func (c candidate) views() int64 {
	var top int64
	for _, m := range c.messages {
		if m.Views > top {
			top = m.Views
		}
	}
	return top
}

// CheckViews проверяет просмотры постов каналов.
func (d *Dispatcher) CheckViews(ctx context.Context, channels []models.Channel) error {
	return d.forEach(ctx, "views", channels, d.CheckChannelViews)
}

// CheckChannelViews обходит посты канала в пределах historyDaysLimit, отбирает
// превысившие пороги и выполняет действия ограничений.
func (d *Dispatcher) CheckChannelViews(ctx context.Context, entry *log.Entry, ch models.Channel) error {
	now := d.now()
	today := policy.Day(now)
	entry.Infof("[VIEWS] проверка канала %s", ch)

	all, graph, err := d.graph(ctx, ch.ID, today)
	if err != nil {
		return err
	}
	lims := ofType(all, models.LimitationPostViews)
	if len(lims) == 0 {
		return nil
	}

	horizon := today.AddDate(0, 0, -ch.HistoryDaysLimit)
	var candidates []candidate
	seen := map[int]bool{}
	groups := map[int64]bool{}

	it := d.transport.Messages(ch)
	for it.Next(ctx) {
		msg := it.Value()
		if policy.Day(msg.Date).Before(horizon) {
			break
		}
		if msg.Views == 0 || seen[msg.ID] {
			continue
		}
		if msg.Album() && ch.DeleteAlbums && groups[msg.GroupedID] {
			continue
		}

		c, ok, err := d.matchPost(ctx, entry, ch, lims, graph, msg)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if msg.Album() && ch.DeleteAlbums {
			group, err := d.transport.MediaGroup(ctx, ch, msg)
			if err != nil {
				return fmt.Errorf("ошибка получения альбома %d: %w", msg.GroupedID, err)
			}
			if len(group) > 0 {
				c.messages = group
			}
			groups[msg.GroupedID] = true
		}
		for _, m := range c.messages {
			seen[m.ID] = true
		}
		candidates = append(candidates, c)
	}
	if err := it.Err(); err != nil {
		return err
	}

	entry.Infof("[VIEWS] найдено постов для обработки: %d", len(candidates))
	return d.apply(ctx, entry, ch, candidates)
}

// matchPost возвращает первое ограничение, порог которого превышен постом.
func (d *Dispatcher) matchPost(ctx context.Context, entry *log.Entry, ch models.Channel,
	lims []models.Limitation, graph *policy.Graph, msg transport.Message) (candidate, bool, error) {
	now := d.now()
	for _, l := range lims {
		if !policy.Covers(l, msg.Date, now) {
			continue
		}
		if !policy.IsHighestPriority(l, lims, msg.Date, now) {
			continue
		}
		if !activated(entry, graph, l) {
			continue
		}

		// учёт прироста ведётся и тогда, когда пост уже превысил абсолютный порог
		var change float64
		var grown bool
		if l.HasViewsDifference() {
			var err error
			change, grown, err = d.postDifference(ctx, ch, l, msg)
			if err != nil {
				return candidate{}, false, err
			}
		}
		if l.HasViewsThreshold() && msg.Views > l.ViewsThreshold {
			entry.Debugf("[VIEWS] пост %d: %d просмотров > %d", msg.ID, msg.Views, l.ViewsThreshold)
			return candidate{limitation: l, messages: []transport.Message{msg},
				events: msg.Views, limit: l.ViewsThreshold}, true, nil
		}
		if grown {
			entry.Debugf("[VIEWS] пост %d: прирост %.1f%% > %d%%", msg.ID, change, l.ViewsDifferencePercent)
			return candidate{limitation: l, messages: []transport.Message{msg},
				events: int64(change), limit: int64(l.ViewsDifferencePercent)}, true, nil
		}
	}
	return candidate{}, false, nil
}

// postDifference сравнивает просмотры поста с последней проверкой. Первая
// проверка только запоминает значение.
func (d *Dispatcher) postDifference(ctx context.Context, ch models.Channel, l models.Limitation, msg transport.Message) (float64, bool, error) {
	now := d.now()
	check, err := d.repo.PostCheck(ctx, ch.ID, msg.ID)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка загрузки проверки поста %d: %w", msg.ID, err)
	}
	if check == nil {
		err := d.repo.CreatePostCheck(ctx, &models.PostCheck{
			ChannelID: ch.ID,
			PostID:    msg.ID,
			PostDate:  msg.Date,
			LastCheck: now,
			Views:     msg.Views,
		})
		if err != nil {
			return 0, false, fmt.Errorf("ошибка сохранения проверки поста %d: %w", msg.ID, err)
		}
		return 0, false, nil
	}
	if !evaluator.Due(check.LastCheck, l.DifferenceInterval(), now) {
		return 0, false, nil
	}

	change, breach := evaluator.ExceedsPercent(check.Views, msg.Views, l.ViewsDifferencePercent)
	check.Views = msg.Views
	check.LastCheck = now
	if err := d.repo.UpdatePostCheck(ctx, check); err != nil {
		return 0, false, fmt.Errorf("ошибка обновления проверки поста %d: %w", msg.ID, err)
	}
	return change, breach, nil
}

// apply выполняет действия ограничений для отобранных постов. Смена username
// запрашивается не больше одного раза за проход, но срабатывание каждого
// ограничения на смену записывается в журнал.
func (d *Dispatcher) apply(ctx context.Context, entry *log.Entry, ch models.Channel, candidates []candidate) error {
	today := policy.Day(d.now())
	rotationRequested := false

	for _, c := range candidates {
		if c.limitation.Action == models.ActionChangeUsername {
			if err := d.logTrigger(ctx, ch, c); err != nil {
				return err
			}
			if rotationRequested {
				continue
			}
			rotationRequested = true
			lid := c.limitation.ID
			err := d.rotate(ctx, entry, quota.Request{
				ChannelID:    ch.ID,
				Reason:       models.ReasonDeletionsLimit,
				Comment:      fmt.Sprintf("Пост %d: %d > лимит %d", c.first().ID, c.events, c.limit),
				LimitationID: &lid,
				EventsCount:  c.events,
				EventsLimit:  c.limit,
			})
			if err != nil {
				return err
			}
			continue
		}

		err := d.deletePost(ctx, entry, ch, c, today)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entry.WithError(err).Errorf("[VIEWS] ошибка удаления поста %d", c.first().ID)
		if rl, ok := transport.AsRateLimit(err); ok {
			if err := d.sleep(ctx, rl.Wait, d.maxSleep); err != nil {
				return err
			}
		}
	}
	return nil
}

// logTrigger записывает срабатывание ограничения на смену username. Запись
// не считается сменой username, но отмечает ограничение сработавшим сегодня.
func (d *Dispatcher) logTrigger(ctx context.Context, ch models.Channel, c candidate) error {
	first := c.first()
	postID, postDate, views, lid := first.ID, first.Date, c.views(), c.limitation.ID
	reason := models.ReasonDeletionsLimit
	err := d.repo.CreateLog(ctx, &models.Log{
		Type:         models.LogUsernameChange,
		UserBotID:    d.userbotID,
		ChannelID:    ch.ID,
		PostID:       &postID,
		PostDate:     &postDate,
		PostViews:    &views,
		LimitationID: &lid,
		Reason:       &reason,
		Comment:      fmt.Sprintf("Превышен порог: %d > %d", c.events, c.limit),
	})
	if err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	return nil
}

// deletePost при необходимости публикует копию поста, удаляет его и пишет журнал.
func (d *Dispatcher) deletePost(ctx context.Context, entry *log.Entry, ch models.Channel, c candidate, today time.Time) error {
	first := c.first()
	var opErr error
	if ch.RepublishTodayPosts && policy.Day(first.Date).Equal(today) {
		if err := d.transport.Republish(ctx, ch, c.messages); err != nil {
			opErr = fmt.Errorf("ошибка повторной публикации: %w", err)
		}
	}
	if opErr == nil {
		if err := d.transport.DeleteMessages(ctx, ch, c.ids()); err != nil {
			opErr = fmt.Errorf("ошибка удаления: %w", err)
		}
	}

	success := opErr == nil
	metrics.Deletions.WithLabelValues(strconv.FormatInt(ch.ID, 10), strconv.FormatBool(success)).Inc()

	postID, postDate, views, lid := first.ID, first.Date, c.views(), c.limitation.ID
	logErr := d.repo.CreateLog(ctx, &models.Log{
		Type:         models.LogDeletion,
		UserBotID:    d.userbotID,
		ChannelID:    ch.ID,
		PostID:       &postID,
		PostDate:     &postDate,
		PostViews:    &views,
		LimitationID: &lid,
		Success:      success,
		ErrorMessage: models.TruncateError(opErr),
	})
	if logErr != nil {
		return fmt.Errorf("ошибка записи журнала: %w", logErr)
	}
	if success {
		entry.Infof("[VIEWS] удалён пост %d (%d просмотров)", postID, views)
	}
	return opErr
}
