// Package username генерирует новые username каналов и выполняет их смену
// с повторами и записью в журнал.
package username

import (
	"math/rand"
	"strings"
)

const (
	alphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	minLength = 5
	maxLength = 32
)

// Generate возвращает новый username на основе текущего: суффикс длины
// suffixLen после последнего "_" заменяется случайным, иначе добавляется.
func Generate(current string, suffixLen int, rnd *rand.Rand) string {
	if suffixLen < 1 {
		suffixLen = 1
	}
	base := current
	if i := strings.LastIndexByte(current, '_'); i >= 0 && len(current)-i-1 == suffixLen {
		base = current[:i]
	}
	if base == "" {
		base = "channel"
	}
	if limit := maxLength - suffixLen - 1; len(base) > limit {
		base = base[:limit]
	}

	suffix := make([]byte, suffixLen)
	for {
		for i := range suffix {
			suffix[i] = alphabet[rnd.Intn(len(alphabet))]
		}
		name := base + "_" + string(suffix)
		if len(name) < minLength {
			name = base + strings.Repeat("x", minLength-len(name)) + "_" + string(suffix)
		}
		if name != current {
			return name
		}
	}
}
