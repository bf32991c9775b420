package action

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	protocol "github.com/naztar0/TgPostsGuardian/pkg/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, sender int64, req protocol.Request) (any, error) {
	args := m.Called(ctx, sender, req.Action)
	return args.Get(0), args.Error(1)
}

func newTestRouter(exec Executor, chosen *int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{executors: func(userbotID int64) (Executor, bool) {
		if chosen != nil {
			*chosen = userbotID
		}
		if exec == nil {
			return nil, false
		}
		return exec, true
	}}
	r := gin.New()
	r.POST("/action", h.Action)
	return r
}

func post(r http.Handler, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestActionSuccess(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, int64(0), protocol.UpdateUsername).
		Return(protocol.UpdateUsernameResult{ChannelID: -1001, Username: "news_ab"}, nil)
	var chosen int64
	r := newTestRouter(exec, &chosen)

	w := post(r, "/action?userbot_id=7", `{"action": "update_username", "channel_id": -1001}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res protocol.UpdateUsernameResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "news_ab", res.Username)
	assert.Equal(t, int64(7), chosen)
	exec.AssertExpectations(t)
}

func TestActionErrors(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, int64(0), "unknown").Return(nil, protocol.ErrUnknownAction)
	exec.On("Execute", mock.Anything, int64(0), protocol.MakePost).Return(nil, errors.New("boom"))
	r := newTestRouter(exec, nil)

	assert.Equal(t, http.StatusBadRequest, post(r, "/action", `{"channel_id": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/action", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/action?userbot_id=x", `{"action": "make_post"}`).Code)
	assert.Equal(t, http.StatusNotFound, post(r, "/action", `{"action": "unknown"}`).Code)
	assert.Equal(t, http.StatusInternalServerError, post(r, "/action", `{"action": "make_post"}`).Code)

	assert.Equal(t, http.StatusServiceUnavailable, post(newTestRouter(nil, nil), "/action", `{"action": "make_post"}`).Code)
}
