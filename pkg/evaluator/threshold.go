package evaluator

import "time"

// AbsoluteLimit возвращает действующий потолок просмотров. При почасовом
// распределении порог делится на число оставшихся часов суток по UTC.
func AbsoluteLimit(threshold int64, hourly bool, now time.Time) int64 {
	if !hourly {
		return threshold
	}
	remaining := int64(24 - now.UTC().Hour())
	if remaining < 1 {
		remaining = 1
	}
	return threshold / remaining
}

// ExceedsAbsolute возвращает действующий потолок и признак его превышения.
func ExceedsAbsolute(current, threshold int64, hourly bool, now time.Time) (int64, bool) {
	limit := AbsoluteLimit(threshold, hourly, now)
	return limit, current > limit
}

// PercentChange возвращает рост current относительно baseline в процентах.
// При нулевом базовом значении возвращается false.
func PercentChange(baseline, current int64) (float64, bool) {
	if baseline == 0 {
		return 0, false
	}
	return float64(current-baseline) * 100 / float64(baseline), true
}

// ExceedsPercent сообщает, превышает ли рост порог percent.
func ExceedsPercent(baseline, current int64, percent int) (float64, bool) {
	change, ok := PercentChange(baseline, current)
	if !ok {
		return 0, false
	}
	return change, change > float64(percent)
}

// Due сообщает, прошёл ли интервал повторной проверки с момента since.
func Due(since time.Time, interval time.Duration, now time.Time) bool {
	return since.Before(now.Add(-interval))
}
