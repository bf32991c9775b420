package models

import "time"

// Settings хранит единственную запись с настройками, которые меняет администратор.
type Settings struct {
	ArchiveChannelID              *int64 `json:"archive_channel"`
	UsernameSuffixLength          int    `json:"username_suffix_length"`
	CheckPostViewsIntervalSec     int    `json:"check_post_views_interval"`
	CheckPostDeletionsIntervalSec int    `json:"check_post_deletions_interval"`
	CheckStatsIntervalSec         int    `json:"check_stats_interval"`
	DeleteOldPostsIntervalMin     int    `json:"delete_old_posts_interval"`
	UsernameChangeCooldownMin     int    `json:"username_change_cooldown"`
	IndividualAllocations         bool   `json:"individual_allocations"`
}

// DefaultSettings возвращает значения по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		UsernameSuffixLength:          2,
		CheckPostViewsIntervalSec:     60,
		CheckPostDeletionsIntervalSec: 60,
		CheckStatsIntervalSec:         120,
		DeleteOldPostsIntervalMin:     60,
		UsernameChangeCooldownMin:     120,
	}
}

// UsernameChangeCooldown возвращает минимальную паузу между сменами username канала.
func (s Settings) UsernameChangeCooldown() time.Duration {
	return time.Duration(s.UsernameChangeCooldownMin) * time.Minute
}
