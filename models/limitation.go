package models

import "time"

// Limitation описывает правило с порогом по метрике и действием при его превышении.
//
// Область действия задаётся явными датами (StartDate/EndDate), относительными
// сдвигами назад от текущего дня (StartAfterDays/EndAfterDays) или не задаётся вовсе.
// StartAfterLimitationID/EndAfterLimitationID связывают ограничение с другими:
// оно включается после срабатывания первого и выключается после срабатывания второго.
type Limitation struct {
	ID                             int64            `json:"id"`
	ChannelID                      int64            `json:"channel_id"`
	Created                        time.Time        `json:"created"`
	Type                           LimitationType   `json:"type"`
	Action                         LimitationAction `json:"action"`
	ViewsThreshold                 int64            `json:"views"`
	ViewsDifferencePercent         int              `json:"views_difference"`
	ViewsDifferenceIntervalMinutes int              `json:"views_difference_interval"`
	StatsRestrictions              string           `json:"stats_restrictions"`
	HourlyDistribution             bool             `json:"hourly_distribution"`
	StartDate                      *time.Time       `json:"start_date"`
	EndDate                        *time.Time       `json:"end_date"`
	StartAfterDays                 int              `json:"start_after_days"`
	EndAfterDays                   int              `json:"end_after_days"`
	StartAfterLimitationID         *int64           `json:"start_after_limitation_id"`
	EndAfterLimitationID           *int64           `json:"end_after_limitation_id"`
}

// HasViewsThreshold сообщает, задан ли абсолютный порог просмотров.
func (l Limitation) HasViewsThreshold() bool { return l.ViewsThreshold > 0 }

// HasViewsDifference сообщает, задан ли порог процентного прироста.
func (l Limitation) HasViewsDifference() bool { return l.ViewsDifferencePercent > 0 }

// DifferenceInterval возвращает минимальный промежуток между повторными проверками прироста.
func (l Limitation) DifferenceInterval() time.Duration {
	return time.Duration(l.ViewsDifferenceIntervalMinutes) * time.Minute
}
