package models

import "time"

// PostCheck хранит последнее снятое значение просмотров поста.
type PostCheck struct {
	ID        int64     `json:"id"`
	ChannelID int64     `json:"channel_id"`
	PostID    int       `json:"post_id"`
	PostDate  time.Time `json:"post_date"`
	LastCheck time.Time `json:"last_check"`
	Views     int64     `json:"views"`
}
