package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/valeevte/pricetrail/internal/prices"
	"github.com/valeevte/pricetrail/internal/web"
)

// Router builds the gin engine serving every route.
func (a *App) Router() *gin.Engine {
	if a.Config.GinMode != "" {
		gin.SetMode(a.Config.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Log))
	r.SetHTMLTemplate(web.Templates())
	a.Handler.Register(r)
	return r
}

// requestLogger tags each request with an id and logs one line when it ends.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	log = log.With("component", "http")
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(prices.RequestIDKey, id)
		c.Header("X-Request-Id", id)

		start := time.Now()
		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			prices.RequestIDKey, id,
		)
	}
}
