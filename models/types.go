package models

// LimitationType определяет, какую метрику проверяет ограничение.
type LimitationType string

const (
	LimitationPostViews     LimitationType = "post_views"
	LimitationLanguageStats LimitationType = "language_stats"
	LimitationSourceStats   LimitationType = "views_by_source_stats"
)

// LimitationAction задаёт действие при превышении порога.
type LimitationAction string

const (
	ActionDeletePost     LimitationAction = "delete_post"
	ActionChangeUsername LimitationAction = "change_username"
)

// LogType задаёт тип записи журнала действий.
type LogType string

const (
	LogDeletion       LogType = "DELETION"
	LogUsernameChange LogType = "USERNAME_CHANGE"
)

// UsernameChangeReason описывает причину смены username канала.
type UsernameChangeReason string

const (
	ReasonDeletionsLimit               UsernameChangeReason = "DELETIONS_LIMIT"
	ReasonLanguageStatsViewsLimit      UsernameChangeReason = "LANGUAGE_STATS_VIEWS_LIMIT"
	ReasonLanguageStatsViewsDifference UsernameChangeReason = "LANGUAGE_STATS_VIEWS_DIFFERENCE_LIMIT"
	ReasonViewsBySourceStatsLimit      UsernameChangeReason = "VIEWS_BY_SOURCE_STATS_LIMIT"
	ReasonViewsBySourceStatsDifference UsernameChangeReason = "VIEWS_BY_SOURCE_STATS_DIFFERENCE_LIMIT"
	ReasonThirdPartyRequest            UsernameChangeReason = "THIRD_PARTY_REQUEST"
)

// StatsType задаёт разрез статистики канала.
type StatsType string

const (
	StatsLanguage      StatsType = "LANGUAGE"
	StatsViewsBySource StatsType = "VIEWS_BY_SOURCE"
)

// SessionMode задаёт режим работы сессии юзербота.
type SessionMode string

const (
	SessionListener SessionMode = "LISTENER"
	SessionWorker   SessionMode = "WORKER"
)

// StatsTypeOf возвращает разрез статистики для типа ограничения.
// Для PostViews второй результат равен false.
func StatsTypeOf(t LimitationType) (StatsType, bool) {
	switch t {
	case LimitationLanguageStats:
		return StatsLanguage, true
	case LimitationSourceStats:
		return StatsViewsBySource, true
	}
	return "", false
}

// LimitReason возвращает причину смены username при превышении абсолютного порога статистики.
func (s StatsType) LimitReason() UsernameChangeReason {
	if s == StatsViewsBySource {
		return ReasonViewsBySourceStatsLimit
	}
	return ReasonLanguageStatsViewsLimit
}

// DifferenceReason возвращает причину смены username при превышении процентного прироста.
func (s StatsType) DifferenceReason() UsernameChangeReason {
	if s == StatsViewsBySource {
		return ReasonViewsBySourceStatsDifference
	}
	return ReasonLanguageStatsViewsDifference
}

// LogTypeOf сопоставляет действие ограничения с типом записи журнала.
func LogTypeOf(a LimitationAction) LogType {
	if a == ActionChangeUsername {
		return LogUsernameChange
	}
	return LogDeletion
}
