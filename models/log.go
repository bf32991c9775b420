package models

import "time"

// ErrorMessageLimit задаёт максимальную длину текста ошибки в журнале.
const ErrorMessageLimit = 256

// Log хранит запись журнала действий. После создания не изменяется.
type Log struct {
	ID           int64                 `json:"id"`
	Created      time.Time             `json:"created"`
	Type         LogType               `json:"type"`
	UserBotID    *int64                `json:"userbot_id"`
	ChannelID    int64                 `json:"channel_id"`
	PostID       *int                  `json:"post_id"`
	PostDate     *time.Time            `json:"post_date"`
	PostViews    *int64                `json:"post_views"`
	LimitationID *int64                `json:"limitation_id"`
	Reason       *UsernameChangeReason `json:"reason"`
	Comment      string                `json:"comment"`
	Success      bool                  `json:"success"`
	ErrorMessage string                `json:"error_message"`
}

// TruncateError обрезает текст ошибки до ErrorMessageLimit, сохраняя конец сообщения.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := []rune(err.Error())
	if len(msg) > ErrorMessageLimit {
		msg = msg[len(msg)-ErrorMessageLimit:]
	}
	return string(msg)
}
