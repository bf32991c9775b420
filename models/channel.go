package models

import (
	"fmt"
	"time"
)

// Channel описывает канал под управлением юзерботов.
// Владелец (OwnerID) является юзерботом с правами администратора, может отсутствовать.
type Channel struct {
	ID                              int64      `json:"channel_id"`
	AccessHash                      int64      `json:"access_hash"`
	Title                           string     `json:"title"`
	Username                        string     `json:"username"`
	OwnerID                         *int64     `json:"owner_id"`
	HasProtectedContent             bool       `json:"has_protected_content"`
	LastUsernameChange              *time.Time `json:"last_username_change"`
	HistoryDaysLimit                int        `json:"history_days_limit"`
	DeleteAlbums                    bool       `json:"delete_albums"`
	RepublishTodayPosts             bool       `json:"republish_today_posts"`
	DeletionsCountForUsernameChange int        `json:"deletions_count_for_username_change"`
	DeletePostsAfterDays            int        `json:"delete_posts_after_days"`
}

// PeerID возвращает идентификатор канала в формате Bot API (-100<id>).
func (c Channel) PeerID() int64 {
	return -1000000000000 - c.ID
}

// ChannelIDFromPeer переводит идентификатор формата -100<id> в ID канала.
func ChannelIDFromPeer(peer int64) (int64, error) {
	if peer >= 0 {
		return peer, nil
	}
	id := -peer - 1000000000000
	if id <= 0 {
		return 0, fmt.Errorf("некорректный идентификатор канала %d", peer)
	}
	return id, nil
}

func (c Channel) String() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("канал %d", c.ID)
}
