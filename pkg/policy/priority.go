// Package policy вычисляет приоритет и период действия ограничений,
// разрешает конфликты между пересекающимися ограничениями и проверяет
// граф зависимостей активации.
package policy

import (
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

// Ранги приоритета: чем меньше, тем конкретнее ограничение.
const (
	PriorityExplicitRange = 1
	PriorityMixedRange    = 2
	PriorityRelativeRange = 3
	PriorityExplicitEdge  = 4
	PriorityRelativeEdge  = 5
	PriorityUnscoped      = 6
)

// epoch задаёт начало периода для ограничений без нижней границы.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Priority возвращает ранг ограничения по заполненным полям периода.
func Priority(l models.Limitation) int {
	explicitStart := l.StartDate != nil
	explicitEnd := l.EndDate != nil
	relativeStart := l.StartAfterDays > 0
	relativeEnd := l.EndAfterDays > 0

	switch {
	case explicitStart && explicitEnd:
		return PriorityExplicitRange
	case explicitStart && relativeEnd, relativeStart && explicitEnd:
		return PriorityMixedRange
	case relativeStart && relativeEnd:
		return PriorityRelativeRange
	case explicitStart || explicitEnd:
		return PriorityExplicitEdge
	case relativeStart || relativeEnd:
		return PriorityRelativeEdge
	}
	return PriorityUnscoped
}

// Day обрезает время до начала суток по UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ActiveRange возвращает период действия ограничения [start, end] в днях UTC.
// Относительные сдвиги отсчитываются назад от текущего дня.
func ActiveRange(l models.Limitation, now time.Time) (start, end time.Time) {
	today := Day(now)

	switch {
	case l.StartDate != nil:
		start = Day(*l.StartDate)
	case l.StartAfterDays > 0:
		start = today.AddDate(0, 0, -l.StartAfterDays)
	default:
		start = epoch
	}

	switch {
	case l.EndDate != nil:
		end = Day(*l.EndDate)
	case l.EndAfterDays > 0:
		end = today.AddDate(0, 0, -l.EndAfterDays)
	default:
		end = today
	}
	return start, end
}

// Covers сообщает, попадает ли дата date в период действия ограничения.
func Covers(l models.Limitation, date, now time.Time) bool {
	start, end := ActiveRange(l, now)
	day := Day(date)
	return !day.Before(start) && !day.After(end)
}

// sameShape сообщает, что у обоих ограничений одинаково заданы (или не заданы) оба порога.
func sameShape(a, b models.Limitation) bool {
	return a.HasViewsThreshold() == b.HasViewsThreshold() &&
		a.HasViewsDifference() == b.HasViewsDifference()
}

// IsHighestPriority возвращает false, если среди all есть ограничение того же типа
// и той же формы, действующее на дату date и имеющее строго меньший ранг.
func IsHighestPriority(candidate models.Limitation, all []models.Limitation, date, now time.Time) bool {
	rank := Priority(candidate)
	for _, other := range all {
		if other.ID == candidate.ID || other.Type != candidate.Type {
			continue
		}
		if !sameShape(other, candidate) || Priority(other) >= rank {
			continue
		}
		if Covers(other, date, now) {
			return false
		}
	}
	return true
}
