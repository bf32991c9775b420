package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyGraph означает, что график статистики не содержит рядов данных.
var ErrEmptyGraph = errors.New("график статистики пуст")

// graphJSON описывает формат данных графика статистики канала.
type graphJSON struct {
	Columns [][]json.RawMessage `json:"columns"`
	Names   map[string]string   `json:"names"`
}

// Breakdown хранит значения статистики по ключам за последние дни графика.
type Breakdown struct {
	values map[string]int64
}

// ParseGraph суммирует последние days точек каждого ряда графика.
// Ключом ряда служит его отображаемое имя в нижнем регистре.
func ParseGraph(data []byte, days int) (*Breakdown, error) {
	var g graphJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("ошибка разбора графика: %w", err)
	}
	if days < 1 {
		days = 1
	}

	b := &Breakdown{values: map[string]int64{}}
	for _, col := range g.Columns {
		if len(col) < 2 {
			continue
		}
		var id string
		if err := json.Unmarshal(col[0], &id); err != nil {
			return nil, fmt.Errorf("ошибка разбора ряда графика: %w", err)
		}
		if id == "x" {
			continue
		}
		name := id
		if n, ok := g.Names[id]; ok {
			name = n
		}

		points := col[1:]
		if len(points) > days {
			points = points[len(points)-days:]
		}
		var sum int64
		for _, p := range points {
			var v float64
			if err := json.Unmarshal(p, &v); err != nil {
				return nil, fmt.Errorf("ошибка разбора значения ряда %q: %w", name, err)
			}
			sum += int64(v)
		}
		b.values[strings.ToLower(name)] += sum
	}
	if len(b.values) == 0 {
		return nil, ErrEmptyGraph
	}
	return b, nil
}

// Total возвращает сумму по всем ключам.
func (b *Breakdown) Total() int64 {
	var total int64
	for _, v := range b.values {
		total += v
	}
	return total
}

// Get возвращает значение ключа и признак его наличия.
func (b *Breakdown) Get(key string) (int64, bool) {
	v, ok := b.values[strings.ToLower(key)]
	return v, ok
}

// Others возвращает сумму значений ключей, не перечисленных в restrictions.
func (b *Breakdown) Others(restrictions Restrictions) int64 {
	var sum int64
	for k, v := range b.values {
		if _, listed := restrictions[k]; !listed {
			sum += v
		}
	}
	return sum
}
