// Package cycle запускает и отменяет внеплановые циклы проверки каналов.
package cycle

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/naztar0/TgPostsGuardian/internal/httputil"
	"github.com/naztar0/TgPostsGuardian/internal/worker"
	log "github.com/sirupsen/logrus"
)

// Names перечисляет циклы, которые можно запустить вручную.
var Names = []string{"views", "stats", "deletions", "old_posts", "refresh"}

// Runner выполняет цикл во всех рабочих сессиях.
type Runner interface {
	RunCycle(ctx context.Context, name string) error
}

// Handler обрабатывает запросы запуска циклов.
type Handler struct {
	runner Runner

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner, tasks: make(map[string]context.CancelFunc)}
}

func known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Start обрабатывает POST /cycle/:name и запускает цикл в фоне.
//
// Ответ (202, JSON): { "status": "запущено", "task_id": "<uuid>" }
//
// Возможные ошибки:
// - 404: неизвестный цикл
func (h *Handler) Start(c *gin.Context) {
	name := c.Param("name")
	if !known(name) {
		httputil.RespondError(c, http.StatusNotFound, "неизвестный цикл")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	h.mu.Lock()
	h.tasks[id] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.tasks, id)
			h.mu.Unlock()
			cancel()
		}()
		entry := log.WithFields(log.Fields{"task": id, "cycle": name})
		switch err := h.runner.RunCycle(ctx, name); {
		case errors.Is(err, context.Canceled):
			entry.Info("[CYCLE] цикл отменён")
		case err != nil:
			entry.WithError(err).Error("[CYCLE] цикл завершился с ошибкой")
		default:
			entry.Info("[CYCLE] цикл выполнен")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "запущено", "task_id": id})
}

// Tasks обрабатывает GET /cycle и возвращает ID выполняющихся задач.
func (h *Handler) Tasks(c *gin.Context) {
	h.mu.Lock()
	ids := make([]string, 0, len(h.tasks))
	for id := range h.tasks {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"tasks": ids})
}

// CancelAll отменяет все запущенные вручную циклы.
func (h *Handler) CancelAll(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, cancel := range h.tasks {
		cancel()
		delete(h.tasks, id)
	}

	c.JSON(http.StatusOK, gin.H{"status": "все задачи остановлены"})
}

var _ Runner = (*worker.Fleet)(nil)
