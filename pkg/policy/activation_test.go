package policy

import (
	"errors"
	"testing"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id int64) *int64 { return &id }

// TestIsActivatedWithoutDependencies проверяет, что ограничение без зависимостей активно всегда.
func TestIsActivatedWithoutDependencies(t *testing.T) {
	g := NewGraph([]models.Limitation{{ID: 1}}, nil)
	ok, err := g.IsActivated(1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestIsActivatedStartTrigger проверяет включение после срабатывания ограничения-старта.
func TestIsActivatedStartTrigger(t *testing.T) {
	lims := []models.Limitation{
		{ID: 1},
		{ID: 2, StartAfterLimitationID: ref(1)},
	}

	ok, err := NewGraph(lims, nil).IsActivated(2)
	require.NoError(t, err)
	assert.False(t, ok, "старт ещё не срабатывал")

	ok, err = NewGraph(lims, map[int64]bool{1: true}).IsActivated(2)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestIsActivatedEndTrigger проверяет выключение после срабатывания ограничения-стопа.
func TestIsActivatedEndTrigger(t *testing.T) {
	lims := []models.Limitation{
		{ID: 1},
		{ID: 2},
		{ID: 3, StartAfterLimitationID: ref(1), EndAfterLimitationID: ref(2)},
	}

	ok, err := NewGraph(lims, map[int64]bool{1: true}).IsActivated(3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewGraph(lims, map[int64]bool{1: true, 2: true}).IsActivated(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestIsActivatedEndSelf проверяет, что стоп, указывающий на само ограничение, игнорируется.
func TestIsActivatedEndSelf(t *testing.T) {
	g := NewGraph([]models.Limitation{{ID: 1, EndAfterLimitationID: ref(1)}}, map[int64]bool{1: true})
	ok, err := g.IsActivated(1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestIsActivatedChain проверяет цепочку зависимостей.
func TestIsActivatedChain(t *testing.T) {
	lims := []models.Limitation{
		{ID: 1},
		{ID: 2, StartAfterLimitationID: ref(1)},
		{ID: 3, StartAfterLimitationID: ref(2)},
	}
	ok, err := NewGraph(lims, map[int64]bool{2: true}).IsActivated(3)
	require.NoError(t, err)
	assert.False(t, ok, "2 сработало, но само не активно")

	ok, err = NewGraph(lims, map[int64]bool{1: true, 2: true}).IsActivated(3)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestIsActivatedSelfReference проверяет, что самоссылка старта даёт false и ошибку настройки.
func TestIsActivatedSelfReference(t *testing.T) {
	g := NewGraph([]models.Limitation{{ID: 7, StartAfterLimitationID: ref(7)}}, map[int64]bool{7: true})
	ok, err := g.IsActivated(7)
	assert.False(t, ok)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, int64(7), cfgErr.LimitationID)
	assert.ErrorIs(t, err, ErrSelfReference)
}

// TestIsActivatedCycle проверяет, что цикл завершается и даёт false с ошибкой для всех участников.
func TestIsActivatedCycle(t *testing.T) {
	lims := []models.Limitation{
		{ID: 1, StartAfterLimitationID: ref(3)},
		{ID: 2, StartAfterLimitationID: ref(1)},
		{ID: 3, StartAfterLimitationID: ref(2)},
		{ID: 4},
	}
	g := NewGraph(lims, map[int64]bool{1: true, 2: true, 3: true})
	for _, id := range []int64{1, 2, 3} {
		ok, err := g.IsActivated(id)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrCircularDependency)
	}
	ok, err := g.IsActivated(4)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestIsActivatedMissing проверяет, что неизвестный старт даёт ошибку настройки.
func TestIsActivatedMissing(t *testing.T) {
	g := NewGraph([]models.Limitation{{ID: 1, StartAfterLimitationID: ref(99)}}, nil)
	ok, err := g.IsActivated(1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMissingDependency)
}
