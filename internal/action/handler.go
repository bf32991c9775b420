// Package action обслуживает команды ACTION через HTTP.
package action

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/naztar0/TgPostsGuardian/internal/httputil"
	protocol "github.com/naztar0/TgPostsGuardian/pkg/action"
)

// Executor выполняет разобранную команду.
type Executor interface {
	Execute(ctx context.Context, sender int64, req protocol.Request) (any, error)
}

// Executors выбирает исполнителя команд.
type Executors interface {
	Get(userbotID int64) (*protocol.Handler, bool)
	Any() (*protocol.Handler, bool)
}

// Handler принимает команды в том же формате, что и сообщения ACTION.
type Handler struct {
	executors func(userbotID int64) (Executor, bool)
}

// NewHandler создаёт обработчик поверх реестра слушателей.
func NewHandler(registry Executors) *Handler {
	return &Handler{executors: func(userbotID int64) (Executor, bool) {
		var (
			h  *protocol.Handler
			ok bool
		)
		if userbotID > 0 {
			h, ok = registry.Get(userbotID)
		} else {
			h, ok = registry.Any()
		}
		if !ok {
			return nil, false
		}
		return h, true
	}}
}

// Action обрабатывает POST /action.
//
// Тело запроса содержит JSON команды, например {"action": "update_username", "channel_id": -1001234}.
// Параметр userbot_id выбирает сессию-слушателя, иначе используется любая.
//
// Ответ (200, JSON): результат команды.
//
// Возможные ошибки:
// - 400: неверный формат запроса или параметры команды
// - 404: неизвестная команда или запись не найдена
// - 409: архивный канал не настроен
// - 429: ограничение частоты запросов Telegram
// - 503: нет подключённых слушателей
// - 500: ошибка выполнения
func (h *Handler) Action(c *gin.Context) {
	var userbotID int64
	if v := c.Query("userbot_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.RespondError(c, http.StatusBadRequest, "userbot_id должен быть числом")
			return
		}
		userbotID = id
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "неверный формат запроса")
		return
	}
	req, err := protocol.Decode(body)
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	exec, ok := h.executors(userbotID)
	if !ok {
		httputil.RespondError(c, http.StatusServiceUnavailable, "нет подключённых слушателей")
		return
	}
	res, err := exec.Execute(c.Request.Context(), 0, req)
	if err != nil {
		httputil.RespondFailure(c, "[ACTION] ошибка выполнения "+req.Action, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
