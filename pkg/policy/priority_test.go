package policy

import (
	"testing"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// TestPriority проверяет ранги для всех сочетаний полей периода.
func TestPriority(t *testing.T) {
	tests := []struct {
		name string
		l    models.Limitation
		want int
	}{
		{"явные даты", models.Limitation{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}, 1},
		{"явное начало и относительный конец", models.Limitation{StartDate: date(2024, 1, 1), EndAfterDays: 2}, 2},
		{"относительное начало и явный конец", models.Limitation{StartAfterDays: 7, EndDate: date(2024, 1, 31)}, 2},
		{"относительные сдвиги", models.Limitation{StartAfterDays: 7, EndAfterDays: 2}, 3},
		{"только явное начало", models.Limitation{StartDate: date(2024, 1, 1)}, 4},
		{"только явный конец", models.Limitation{EndDate: date(2024, 1, 31)}, 4},
		{"только относительное начало", models.Limitation{StartAfterDays: 3}, 5},
		{"только относительный конец", models.Limitation{EndAfterDays: 3}, 5},
		{"без периода", models.Limitation{}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Priority(tt.l))
		})
	}
}

// TestActiveRange проверяет вычисление границ периода.
func TestActiveRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	start, end := ActiveRange(models.Limitation{}, now)
	assert.Equal(t, epoch, start)
	assert.Equal(t, *date(2024, 3, 10), end)

	start, end = ActiveRange(models.Limitation{StartAfterDays: 7, EndAfterDays: 1}, now)
	assert.Equal(t, *date(2024, 3, 3), start)
	assert.Equal(t, *date(2024, 3, 9), end)

	start, end = ActiveRange(models.Limitation{StartDate: date(2024, 2, 1), EndDate: date(2024, 2, 29)}, now)
	assert.Equal(t, *date(2024, 2, 1), start)
	assert.Equal(t, *date(2024, 2, 29), end)

	assert.True(t, Covers(models.Limitation{StartAfterDays: 7}, now.AddDate(0, 0, -7), now))
	assert.False(t, Covers(models.Limitation{StartAfterDays: 7}, now.AddDate(0, 0, -8), now))
}

// TestIsHighestPriority проверяет подавление широкого ограничения узким.
func TestIsHighestPriority(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	narrow := models.Limitation{ID: 1, Type: models.LimitationPostViews, ViewsThreshold: 500,
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 15)}
	broad := models.Limitation{ID: 2, Type: models.LimitationPostViews, ViewsThreshold: 1000,
		StartDate: date(2024, 1, 1)}
	all := []models.Limitation{narrow, broad}
	overlap := *date(2024, 3, 5)

	assert.True(t, IsHighestPriority(narrow, all, overlap, now))
	assert.False(t, IsHighestPriority(broad, all, overlap, now))

	// вне периода узкого ограничения широкое действует
	assert.True(t, IsHighestPriority(broad, all, *date(2024, 2, 5), now))
}

// TestIsHighestPriorityShape проверяет, что ограничения разной формы не подавляют друг друга.
func TestIsHighestPriorityShape(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	narrow := models.Limitation{ID: 1, Type: models.LimitationPostViews, ViewsThreshold: 500,
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 15)}
	broad := models.Limitation{ID: 2, Type: models.LimitationPostViews, ViewsDifferencePercent: 30}
	otherType := models.Limitation{ID: 3, Type: models.LimitationLanguageStats, ViewsThreshold: 100,
		StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 15)}
	all := []models.Limitation{narrow, broad, otherType}

	assert.True(t, IsHighestPriority(broad, all, *date(2024, 3, 5), now))

	sameShapeBroad := models.Limitation{ID: 4, Type: models.LimitationLanguageStats, ViewsThreshold: 200}
	assert.True(t, IsHighestPriority(sameShapeBroad, []models.Limitation{narrow, sameShapeBroad}, *date(2024, 3, 5), now))
	assert.False(t, IsHighestPriority(sameShapeBroad, append(all, sameShapeBroad), *date(2024, 3, 5), now))
}
