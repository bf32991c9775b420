// Package evaluator содержит проверки порогов просмотров: абсолютный лимит,
// процентное изменение относительно базового значения и разбор ограничений
// по ключам статистики (языки, источники просмотров).
package evaluator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Wildcard задаёт ключ, обозначающий сумму всех значений, не перечисленных отдельно.
const Wildcard = "*"

// Kind задаёт вид ограничения по ключу.
type Kind int

const (
	// Absolute задаёт потолок просмотров.
	Absolute Kind = iota
	// Percent задаёт потолок роста в процентах.
	Percent
)

func (k Kind) String() string {
	if k == Percent {
		return "percent"
	}
	return "absolute"
}

// Restriction задаёт порог для одного ключа статистики.
type Restriction struct {
	Kind  Kind
	Value uint64
}

// Restrictions хранит пороги по ключам. Ключи приводятся к нижнему регистру.
type Restrictions map[string]Restriction

// ParseRestrictions разбирает текст вида "ключ значение" по строке на ключ.
// Значение с завершающим "%" задаёт процентный порог. Пустые строки пропускаются.
func ParseRestrictions(text string) (Restrictions, error) {
	res := Restrictions{}
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("строка %d: ожидается \"ключ значение\": %q", n+1, line)
		}
		key, raw := strings.ToLower(fields[0]), fields[1]

		kind := Absolute
		if strings.HasSuffix(raw, "%") {
			kind = Percent
			raw = strings.TrimSuffix(raw, "%")
		}
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("строка %d: некорректное значение %q: %w", n+1, fields[1], err)
		}
		if value == 0 {
			return nil, fmt.Errorf("строка %d: порог для %q должен быть больше нуля", n+1, key)
		}
		res[key] = Restriction{Kind: kind, Value: value}
	}
	return res, nil
}

// Wildcard возвращает порог для ключа "*", если он задан.
func (r Restrictions) Wildcard() (Restriction, bool) {
	v, ok := r[Wildcard]
	return v, ok
}

// Keys возвращает перечисленные ключи без "*" в стабильном порядке.
func (r Restrictions) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != Wildcard {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
