package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cardledger/soldscraper/logger"
)

// SetupRouter wires the scraping endpoints
func SetupRouter(svc SoldPriceService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.ForServer()))
	h := NewHandler(svc)

	r.GET("/health", h.Health)
	r.POST("/scraping", h.ScrapeCard)
	r.GET("/scraping/cards/:uniqueId", h.ScrapeCardByID)

	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
}
