package models

import "time"

// UserBot описывает аккаунт Telegram, которым управляет система.
type UserBot struct {
	ID                     int64      `json:"id"`
	UserID                 int64      `json:"user_id"`
	Phone                  string     `json:"phone"`
	Username               string     `json:"username"`
	ApiID                  int        `json:"api_id"`
	ApiHash                string     `json:"api_hash"`
	IsActive               bool       `json:"is_active"`
	ProxyID                *int       `json:"proxy_id"`
	Proxy                  *Proxy     `json:"proxy"`
	LastServiceMessage     string     `json:"last_service_message"`
	LastServiceMessageDate *time.Time `json:"last_service_message_date"`
}

// UserBotSession описывает сессию юзербота в одном из режимов.
// Сериализованные данные сессии gotd хранятся в таблице userbot_session_data.
type UserBotSession struct {
	ID       int64       `json:"id"`
	UserBot  UserBot     `json:"userbot"`
	Mode     SessionMode `json:"mode"`
	PingTime *time.Time  `json:"ping_time"`
}
