package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthRequired проверяет Bearer-токен служебного API.
// Если токен не задан, все запросы отклоняются.
func AuthRequired(token string) gin.HandlerFunc {
	if token == "" {
		log.Warn("[ROUTER] API_TOKEN не задан, служебные маршруты недоступны")
	}
	expected := []byte("Bearer " + token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if token == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
