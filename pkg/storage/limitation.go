package storage

import (
	"context"
	"fmt"

	"github.com/naztar0/TgPostsGuardian/models"
)

// Limitations возвращает ограничения канала, новые первыми.
func (db *DB) Limitations(ctx context.Context, channelID int64) ([]models.Limitation, error) {
	rows, err := db.Conn.QueryContext(ctx, `
		SELECT id, channel_id, created, type, action, views, views_difference, views_difference_interval,
		       stats_restrictions, hourly_distribution, start_date, end_date, start_after_days, end_after_days,
		       start_after_limitation_id, end_after_limitation_id
		FROM limitation
		WHERE channel_id = $1
		ORDER BY created DESC, id DESC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки ограничений: %w", err)
	}
	defer rows.Close()

	var res []models.Limitation
	for rows.Next() {
		var l models.Limitation
		if err := rows.Scan(
			&l.ID,
			&l.ChannelID,
			&l.Created,
			&l.Type,
			&l.Action,
			&l.ViewsThreshold,
			&l.ViewsDifferencePercent,
			&l.ViewsDifferenceIntervalMinutes,
			&l.StatsRestrictions,
			&l.HourlyDistribution,
			&l.StartDate,
			&l.EndDate,
			&l.StartAfterDays,
			&l.EndAfterDays,
			&l.StartAfterLimitationID,
			&l.EndAfterLimitationID,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения ограничения: %w", err)
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
