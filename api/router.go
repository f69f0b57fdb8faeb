// Package api exposes the resolver cache over HTTP: lookups, manual invalidation,
// the cache size, counters, and a websocket feed of janitor size reports.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/krisalay/dns-cache/dispatch"
	"github.com/krisalay/dns-cache/types"
)

// Deps are the collaborators the router is built from. Only Service is required.
type Deps struct {
	Service Service

	// Pool, if set, runs lookups on its workers instead of the request goroutine.
	Pool *dispatch.Pool

	// Hub, if set, serves /ws/status.
	Hub *StatusHub

	// Counters, if set, serves /api/stats.
	Counters *types.Counters

	// AllowOrigins lists the browser origins accepted by CORS and by /ws/status;
	// empty allows all.
	AllowOrigins []string

	Log logrus.FieldLogger
}

// ResolveResponse is the body of a successful lookup.
type ResolveResponse struct {
	Domain    string   `json:"domain"`
	Addresses []string `json:"addresses"`
	FromCache bool     `json:"from_cache"`
}

type handlers struct {
	Deps
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Log = l
	}
	h := &handlers{Deps: d}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(d.Log))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(d.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.AllowOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/resolve", h.resolve)
		api.GET("/resolve/:domain", h.resolve)
		api.DELETE("/cache", h.clear)
		api.GET("/cache/size", h.size)
		if d.Counters != nil {
			api.GET("/stats", h.stats)
		}
	}

	if d.Hub != nil {
		d.Hub.AllowOrigins(d.AllowOrigins...)
		router.GET("/ws/status", d.Hub.ServeWS)
	}

	return router
}

// GET /api/resolve/:domain or GET /api/resolve?domain=
func (h *handlers) resolve(c *gin.Context) {
	domain := c.Param("domain")
	if domain == "" {
		domain = c.Query("domain")
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain name is required"})
		return
	}

	addrs, fromCache, err := h.lookup(c.Request.Context(), domain)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.Log.WithError(err).WithField("domain", domain).Warn("lookup not completed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ResolveResponse{
		Domain:    domain,
		Addresses: addrs,
		FromCache: fromCache,
	})
}

func (h *handlers) lookup(ctx context.Context, domain string) ([]string, bool, error) {
	if h.Pool == nil {
		addrs, fromCache := h.Service.ResolveWithCache(ctx, domain)
		return addrs, fromCache, nil
	}
	res, err := h.Pool.Resolve(ctx, domain)
	if err != nil {
		return nil, false, err
	}
	return res.Addresses, res.FromCache, nil
}

// DELETE /api/cache
func (h *handlers) clear(c *gin.Context) {
	h.Service.ClearCache()
	c.JSON(http.StatusOK, SizeMessage{Size: h.Service.CacheSize()})
}

// GET /api/cache/size
func (h *handlers) size(c *gin.Context) {
	c.JSON(http.StatusOK, SizeMessage{Size: h.Service.CacheSize()})
}

// GET /api/stats
func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Counters.Snapshot())
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	}
}
