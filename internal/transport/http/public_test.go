package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/mailbox"
	"aliasmail/backend/internal/service"
	"aliasmail/backend/internal/storage/file"
)

// noTokenProvider 模拟尚未完成授权的上游邮箱
type noTokenProvider struct{}

func (noTokenProvider) ListIDs(context.Context, mailbox.ListOptions) ([]string, error) {
	return nil, auth.ErrNoToken
}

func (noTokenProvider) Metadata(context.Context, string) (mailbox.Summary, error) {
	return mailbox.Summary{}, auth.ErrNoToken
}

func (noTokenProvider) Get(context.Context, string) (mailbox.Detail, error) {
	return mailbox.Detail{}, auth.ErrNoToken
}

func newPublicRouter(t *testing.T) (*gin.Engine, *service.DomainService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := file.NewStore(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	local := cache.NewLocalCache(time.Minute, time.Minute)
	t.Cleanup(func() { local.Close() })

	aliases := service.NewAliasService(store, store, zap.NewNop())
	domains := service.NewDomainService(store, zap.NewNop())
	logs := service.NewLogService(store, zap.NewNop())
	inbox := service.NewInboxService(noTokenProvider{}, local, aliases, logs, zap.NewNop())

	_, err = domains.Add("example.com")
	require.NoError(t, err)

	h := NewPublicHandler(aliases, domains, inbox, nil)
	r := gin.New()
	r.GET("/api/messages", h.ListMessages)
	r.GET("/api/messages/:id", h.GetMessage)
	return r, domains
}

func getJSON(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListMessagesStatus(t *testing.T) {
	t.Run("非法别名返回 400", func(t *testing.T) {
		r, _ := newPublicRouter(t)
		w := getJSON(r, "/api/messages?alias=not-an-email")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("域名停用后别名返回 400", func(t *testing.T) {
		r, domains := newPublicRouter(t)
		_, err := domains.SetActive("example.com", false)
		require.NoError(t, err)

		w := getJSON(r, "/api/messages?alias=demo@example.com")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("未授权列表返回 401", func(t *testing.T) {
		r, _ := newPublicRouter(t)
		w := getJSON(r, "/api/messages")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("未授权详情返回 401", func(t *testing.T) {
		r, _ := newPublicRouter(t)
		w := getJSON(r, "/api/messages/m1")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
