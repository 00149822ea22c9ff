package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ticket-fulfillment/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestLogger("/ping"))
	router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("Success - generates request id", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(middleware.RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("Success - keeps caller request id", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("Success - skipped path untouched", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(middleware.RequestIDHeader))
	})
}
