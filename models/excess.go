package models

import "time"

// Excess фиксирует запас смен username, оплаченный крупным превышением и ещё не израсходованный.
// Создаётся не чаще раза в сутки на (канал, тип, причина).
type Excess struct {
	ID        int64                `json:"id"`
	Created   time.Time            `json:"created"`
	ChannelID int64                `json:"channel_id"`
	Type      LogType              `json:"type"`
	Reason    UsernameChangeReason `json:"reason"`
	Value     int64                `json:"value"`
}
