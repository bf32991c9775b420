package cycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	mu      sync.Mutex
	started []string
	done    chan error
}

func (r *blockingRunner) RunCycle(ctx context.Context, name string) error {
	r.mu.Lock()
	r.started = append(r.started, name)
	r.mu.Unlock()
	<-ctx.Done()
	r.done <- ctx.Err()
	return ctx.Err()
}

func setup(runner Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r.Group("/cycle"), runner)
	return r
}

func do(r http.Handler, method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	return w
}

func TestStartUnknownCycle(t *testing.T) {
	r := setup(&blockingRunner{done: make(chan error, 1)})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/cycle/weekly").Code)
}

func TestStartAndCancelAll(t *testing.T) {
	runner := &blockingRunner{done: make(chan error, 1)}
	r := setup(runner)

	w := do(r, http.MethodPost, "/cycle/views")
	require.Equal(t, http.StatusAccepted, w.Code)
	var started struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.NotEmpty(t, started.TaskID)

	w = do(r, http.MethodGet, "/cycle")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Tasks []string `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{started.TaskID}, list.Tasks)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/cycle/cancel_all").Code)

	select {
	case err := <-runner.done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("цикл не был отменён")
	}
	runner.mu.Lock()
	assert.Equal(t, []string{"views"}, runner.started)
	runner.mu.Unlock()
}
