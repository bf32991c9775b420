package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/evaluator"
	"github.com/naztar0/TgPostsGuardian/pkg/policy"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// statsGraphs задаёт порядок проверки разрезов статистики и их графики.
var statsGraphs = []struct {
	limitation models.LimitationType
	stats      models.StatsType
	graph      string
}{
	{models.LimitationLanguageStats, models.StatsLanguage, transport.GraphLanguages},
	{models.LimitationSourceStats, models.StatsViewsBySource, transport.GraphViewsBySource},
}

// CheckStats проверяет статистику каналов по языкам и источникам просмотров.
func (d *Dispatcher) CheckStats(ctx context.Context, channels []models.Channel) error {
	return d.forEach(ctx, "stats", channels, d.CheckChannelStats)
}

// CheckChannelStats загружает графики статистики канала и проверяет действующие
// сегодня ограничения. Каналы без прав на статистику пропускаются.
func (d *Dispatcher) CheckChannelStats(ctx context.Context, entry *log.Entry, ch models.Channel) error {
	now := d.now()
	today := policy.Day(now)
	entry.Infof("[STATS] проверка статистики канала %s", ch)

	all, graph, err := d.graph(ctx, ch.ID, today)
	if err != nil {
		return err
	}
	if len(ofType(all, models.LimitationLanguageStats))+len(ofType(all, models.LimitationSourceStats)) == 0 {
		return nil
	}

	graphs, err := d.transport.StatsGraphs(ctx, ch, transport.GraphLanguages, transport.GraphViewsBySource)
	if errors.Is(err, transport.ErrAdminRequired) {
		entry.Warnf("[STATS] нет доступа к статистике канала %s", ch)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка получения статистики: %w", err)
	}

	for _, sg := range statsGraphs {
		var lims []models.Limitation
		for _, l := range ofType(all, sg.limitation) {
			if policy.Covers(l, today, now) {
				lims = append(lims, l)
			}
		}
		if len(lims) == 0 {
			continue
		}

		breakdown, err := evaluator.ParseGraph(graphs[sg.graph], 1)
		if err != nil {
			entry.WithError(err).Warnf("[STATS] график %s не разобран", sg.graph)
			continue
		}

		for _, l := range lims {
			if !policy.IsHighestPriority(l, lims, today, now) || !activated(entry, graph, l) {
				continue
			}
			restrictions, err := evaluator.ParseRestrictions(l.StatsRestrictions)
			if err != nil {
				entry.WithField("limitation", l.ID).WithError(err).Warn("[STATS] некорректные ограничения по ключам")
				continue
			}
			if _, err := d.evaluateStats(ctx, entry, ch, l, sg.stats, breakdown, restrictions); err != nil {
				return err
			}
		}
	}
	return nil
}

// evaluateStats проверяет пороги ограничения по порядку: общий абсолютный,
// общий прирост, "*" и перечисленные ключи. Первое превышение завершает проверку.
func (d *Dispatcher) evaluateStats(ctx context.Context, entry *log.Entry, ch models.Channel, l models.Limitation,
	st models.StatsType, b *evaluator.Breakdown, r evaluator.Restrictions) (bool, error) {
	total := b.Total()

	if l.HasViewsThreshold() {
		if breach, err := d.statsAbsolute(ctx, entry, ch, l, st, "", total, l.ViewsThreshold); breach || err != nil {
			return breach, err
		}
	}
	if l.HasViewsDifference() {
		if breach, err := d.statsDifference(ctx, entry, ch, l, st, nil, total, l.ViewsDifferencePercent); breach || err != nil {
			return breach, err
		}
	}

	check := func(key string, value int64, rule evaluator.Restriction) (bool, error) {
		if rule.Kind == evaluator.Percent {
			k := key
			return d.statsDifference(ctx, entry, ch, l, st, &k, value, int(rule.Value))
		}
		return d.statsAbsolute(ctx, entry, ch, l, st, key, value, int64(rule.Value))
	}

	if rule, ok := r.Wildcard(); ok {
		if breach, err := check(evaluator.Wildcard, b.Others(r), rule); breach || err != nil {
			return breach, err
		}
	}
	for _, key := range r.Keys() {
		value, ok := b.Get(key)
		if !ok {
			continue
		}
		if breach, err := check(key, value, r[key]); breach || err != nil {
			return breach, err
		}
	}
	return false, nil
}

func (d *Dispatcher) statsAbsolute(ctx context.Context, entry *log.Entry, ch models.Channel, l models.Limitation,
	st models.StatsType, key string, current, threshold int64) (bool, error) {
	limit, breach := evaluator.ExceedsAbsolute(current, threshold, l.HourlyDistribution, d.now())
	if !breach {
		return false, nil
	}
	if limit < 1 {
		limit = 1
	}
	comment := fmt.Sprintf("Просмотры %d > лимит %d", current, limit)
	if key != "" {
		comment = fmt.Sprintf("Просмотры %s %d > лимит %d", key, current, limit)
	}
	lid := l.ID
	return true, d.rotate(ctx, entry, quota.Request{
		ChannelID:    ch.ID,
		Reason:       st.LimitReason(),
		Comment:      comment,
		LimitationID: &lid,
		EventsCount:  current,
		EventsLimit:  limit,
	})
}

// statsDifference сравнивает значение с первым снимком дня. Снимок создаётся
// при первой проверке, сравнение выполняется после интервала ограничения.
func (d *Dispatcher) statsDifference(ctx context.Context, entry *log.Entry, ch models.Channel, l models.Limitation,
	st models.StatsType, key *string, current int64, percent int) (bool, error) {
	if current == 0 {
		return false, nil
	}
	now := d.now()
	snap, err := d.repo.LatestSnapshot(ctx, ch.ID, st, key, policy.Day(now))
	if err != nil {
		return false, fmt.Errorf("ошибка загрузки снимка статистики: %w", err)
	}
	if snap == nil {
		err := d.repo.CreateSnapshot(ctx, &models.StatsSnapshot{
			ChannelID: ch.ID,
			Type:      st,
			Key:       key,
			Value:     current,
		})
		if err != nil {
			return false, fmt.Errorf("ошибка сохранения снимка статистики: %w", err)
		}
		return false, nil
	}
	if !evaluator.Due(snap.Created, l.DifferenceInterval(), now) {
		return false, nil
	}

	change, breach := evaluator.ExceedsPercent(snap.Value, current, percent)
	if !breach {
		return false, nil
	}
	name := "всего"
	if key != nil {
		name = *key
	}
	lid := l.ID
	return true, d.rotate(ctx, entry, quota.Request{
		ChannelID:    ch.ID,
		Reason:       st.DifferenceReason(),
		Comment:      fmt.Sprintf("Прирост просмотров %s %.1f%% (%d|%d) > лимит %d%%", name, change, snap.Value, current, percent),
		LimitationID: &lid,
		EventsCount:  int64(change),
		EventsLimit:  int64(percent),
	})
}
