package models

import "time"

// StatsSnapshot хранит базовое значение статистики за сутки.
// Key == nil означает сумму по всем ключам разреза.
type StatsSnapshot struct {
	ID        int64     `json:"id"`
	Created   time.Time `json:"created"`
	ChannelID int64     `json:"channel_id"`
	Type      StatsType `json:"type"`
	Key       *string   `json:"key"`
	Value     int64     `json:"value"`
}
