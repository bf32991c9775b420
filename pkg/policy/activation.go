package policy

import (
	"errors"
	"fmt"

	"github.com/naztar0/TgPostsGuardian/models"
)

var (
	// ErrSelfReference означает, что ограничение включается после самого себя.
	ErrSelfReference = errors.New("ограничение ссылается само на себя")
	// ErrCircularDependency означает, что зависимости ограничений образуют цикл.
	ErrCircularDependency = errors.New("циклическая зависимость ограничений")
	// ErrMissingDependency означает, что ограничение-триггер не найдено среди ограничений канала.
	ErrMissingDependency = errors.New("ограничение-триггер не найдено")
)

// ConfigError описывает ошибку настройки графа активации. Ограничение с такой ошибкой
// считается неактивным, проверка остальных ограничений продолжается.
type ConfigError struct {
	LimitationID int64
	Err          error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ограничение %d: %v", e.LimitationID, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

const (
	noEdge     = -1
	unresolved = -2
)

// bitset фиксированного размера по индексам ограничений пакета.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }
func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) clear(i int)    { b[i/64] &^= 1 << (uint(i) % 64) }

// Graph хранит граф зависимостей активации, построенный один раз на пакет ограничений канала.
// Ограничения адресуются индексами в массиве, результаты проверки запоминаются.
type Graph struct {
	ids   []int64
	index map[int64]int
	start []int
	end   []int

	fired    bitset
	visiting bitset
	known    bitset
	result   bitset
	errs     []error
}

// NewGraph строит граф по ограничениям канала и множеству ID ограничений,
// сработавших сегодня.
func NewGraph(limitations []models.Limitation, firedToday map[int64]bool) *Graph {
	n := len(limitations)
	g := &Graph{
		ids:      make([]int64, n),
		index:    make(map[int64]int, n),
		start:    make([]int, n),
		end:      make([]int, n),
		fired:    newBitset(n),
		visiting: newBitset(n),
		known:    newBitset(n),
		result:   newBitset(n),
		errs:     make([]error, n),
	}
	for i, l := range limitations {
		g.ids[i] = l.ID
		g.index[l.ID] = i
		if firedToday[l.ID] {
			g.fired.set(i)
		}
	}
	for i, l := range limitations {
		g.start[i] = g.resolve(l.StartAfterLimitationID)
		g.end[i] = g.resolve(l.EndAfterLimitationID)
	}
	return g
}

func (g *Graph) resolve(id *int64) int {
	if id == nil {
		return noEdge
	}
	if i, ok := g.index[*id]; ok {
		return i
	}
	return unresolved
}

// IsActivated проверяет, разрешено ли ограничению срабатывать сегодня.
// Ограничение без зависимостей активно всегда. С зависимостями оно активно, если
// ограничение-старт активно и уже срабатывало сегодня, а ограничение-стоп
// не является одновременно активным и сработавшим.
// Ошибка *ConfigError возвращается вместе с false при самоссылке или цикле.
func (g *Graph) IsActivated(id int64) (bool, error) {
	i, ok := g.index[id]
	if !ok {
		return false, &ConfigError{LimitationID: id, Err: ErrMissingDependency}
	}
	return g.eval(i)
}

func (g *Graph) eval(i int) (bool, error) {
	if g.known.has(i) {
		return g.result.has(i), g.errs[i]
	}
	if g.visiting.has(i) {
		return false, &ConfigError{LimitationID: g.ids[i], Err: ErrCircularDependency}
	}

	start, end := g.start[i], g.end[i]
	if start == noEdge && end == noEdge {
		return g.remember(i, true, nil)
	}
	if start == i {
		return g.remember(i, false, &ConfigError{LimitationID: g.ids[i], Err: ErrSelfReference})
	}

	g.visiting.set(i)
	defer g.visiting.clear(i)

	switch start {
	case noEdge:
	case unresolved:
		return g.remember(i, false, &ConfigError{LimitationID: g.ids[i], Err: ErrMissingDependency})
	default:
		active, err := g.eval(start)
		if err != nil {
			return g.remember(i, false, err)
		}
		if !active || !g.fired.has(start) {
			return g.remember(i, false, nil)
		}
	}

	if end >= 0 && end != i {
		active, err := g.eval(end)
		if err != nil {
			return g.remember(i, false, err)
		}
		if active && g.fired.has(end) {
			return g.remember(i, false, nil)
		}
	}
	return g.remember(i, true, nil)
}

func (g *Graph) remember(i int, active bool, err error) (bool, error) {
	g.known.set(i)
	if active {
		g.result.set(i)
	}
	g.errs[i] = err
	return active, err
}
