package cycle

import "github.com/gin-gonic/gin"

// SetupRoutes регистрирует маршруты циклов.
func SetupRoutes(r *gin.RouterGroup, runner Runner) {
	handler := NewHandler(runner)
	r.GET("", handler.Tasks)
	r.POST("/:name", handler.Start)
	r.POST("/cancel_all", handler.CancelAll)
}
