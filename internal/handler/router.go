package handler

import (
	"net/http"

	"ticket-fulfillment/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteRegistrar 各 handler 自行掛路由
type RouteRegistrar interface {
	RegisterRoutes(r *gin.Engine)
}

// NewRouter 建立共用的 gin engine：access log、recovery、/ping 與 /metrics
func NewRouter(gatherer prometheus.Gatherer, handlers ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger("/ping", "/metrics"), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	for _, h := range handlers {
		h.RegisterRoutes(r)
	}
	return r
}
