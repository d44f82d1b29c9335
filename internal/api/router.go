package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the REST surface and the notification channel endpoint.
func NewRouter(h *Handlers, stream http.Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/events/today", h.TodayEvents)
	r.GET("/events/week", h.WeekEvents)
	r.GET("/events/month", h.MonthEvents)
	r.GET("/events/range", h.RangeEvents)
	r.GET("/events/feed.ics", h.ICSFeed)
	r.GET("/holidays", h.Holidays)
	r.POST("/events", h.CreateEvent)
	r.DELETE("/events/:id", h.DeleteEvent)

	r.POST("/command", h.Command)
	r.POST("/sync", h.Sync)

	r.GET("/ws", func(c *gin.Context) {
		stream.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
