// Package httputil формирует ответы служебного API в едином формате.
package httputil

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	protocol "github.com/naztar0/TgPostsGuardian/pkg/action"
	"github.com/naztar0/TgPostsGuardian/pkg/storage"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// RespondError отправляет сообщение об ошибке и прекращает обработку запроса.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// StatusFor подбирает HTTP-статус для ошибки выполнения команды.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrUnknownAction), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrNoArchive):
		return http.StatusConflict
	case isRateLimit(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func isRateLimit(err error) bool {
	_, ok := transport.AsRateLimit(err)
	return ok
}

// RespondFailure отвечает ошибкой выполнения. Ошибки сервера пишутся в лог.
func RespondFailure(c *gin.Context, op string, err error) {
	status := StatusFor(err)
	if rl, ok := transport.AsRateLimit(err); ok {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.Wait.Seconds()))))
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).Errorf("[ROUTER] %s", op)
	}
	RespondError(c, status, err.Error())
}
