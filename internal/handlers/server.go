package handlers

import (
	"net/http"

	"drips/internal/config"

	"github.com/gin-gonic/gin"
)

// NewServer builds the router with the health route and the http.Server
// that serves it on cfg.HTTPAddr.
func NewServer(cfg config.Config) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "network": cfg.Network})
	})
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	return r, srv
}
