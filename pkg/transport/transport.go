// Package transport описывает операции мессенджера, которые использует
// движок решений, и классификацию ошибок провайдера.
package transport

import (
	"context"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
)

// Названия графиков статистики канала.
const (
	GraphLanguages     = "languages_graph"
	GraphViewsBySource = "views_by_source_graph"
)

// Message описывает сообщение канала.
type Message struct {
	ID        int
	Date      time.Time
	Views     int64
	GroupedID int64
	Text      string
	HasMedia  bool
}

// Album сообщает, входит ли сообщение в альбом.
func (m Message) Album() bool { return m.GroupedID != 0 }

// MessageIterator выполняет ленивый обход сообщений канала от новых к старым.
type MessageIterator interface {
	Next(ctx context.Context) bool
	Value() Message
	Err() error
}

// Transport описывает операции с каналами от имени сессии юзербота.
type Transport interface {
	// Messages обходит историю канала. Повторный вызов начинает обход заново.
	Messages(channel models.Channel) MessageIterator
	// OlderThan возвращает до limit сообщений, опубликованных раньше before.
	OlderThan(ctx context.Context, channel models.Channel, before time.Time, limit int) ([]Message, error)
	// MediaGroup возвращает все сообщения альбома, в который входит msg.
	MediaGroup(ctx context.Context, channel models.Channel, msg Message) ([]Message, error)
	DeleteMessages(ctx context.Context, channel models.Channel, ids []int) error
	// Republish публикует копию сообщений в том же канале без указания автора.
	Republish(ctx context.Context, channel models.Channel, msgs []Message) error
	// StatsGraphs возвращает JSON графиков статистики по названиям.
	StatsGraphs(ctx context.Context, channel models.Channel, graphs ...string) (map[string][]byte, error)
	RenameChannel(ctx context.Context, channel models.Channel, username string) error
}
