package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthRequired(token), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r http.Handler, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthRequired(t *testing.T) {
	r := newRouter("secret")
	assert.Equal(t, http.StatusOK, doRequest(r, "Bearer secret"))
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer wrong"))
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, ""))
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	r := newRouter("")
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer "))
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, ""))
}
