package action

import "github.com/gin-gonic/gin"

// SetupRoutes регистрирует маршруты команд.
func SetupRoutes(r *gin.RouterGroup, registry Executors) {
	handler := NewHandler(registry)
	r.POST("", handler.Action)
}
