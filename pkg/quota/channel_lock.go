package quota

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// channelLocks хранит мьютексы каналов внутри процесса.
type channelLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock захватывает мьютекс канала и возвращает функцию освобождения.
// Если канал уже обрабатывается другим вызовом, ждёт его завершения.
func (c *channelLocks) lock(channelID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[channelID] = l
	}
	c.mu.Unlock()

	if !l.TryLock() {
		log.Debugf("[QUOTA] канал %d занят, ожидание", channelID)
		l.Lock()
	}
	return l.Unlock
}
