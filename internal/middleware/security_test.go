package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("截止时间写入请求上下文", func(t *testing.T) {
		r := gin.New()
		r.Use(Timeout(time.Second))
		r.GET("/", func(c *gin.Context) {
			deadline, ok := c.Request.Context().Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("超时后响应仍由处理器独占写出", func(t *testing.T) {
		r := gin.New()
		r.Use(Timeout(20 * time.Millisecond))
		r.GET("/slow", func(c *gin.Context) {
			// 阻塞到上下文取消，再按错误路径返回
			<-c.Request.Context().Done()
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "upstream timeout"})
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.JSONEq(t, `{"error":"upstream timeout"}`, w.Body.String())
	})
}
