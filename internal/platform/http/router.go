package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/weiwei-tsao/complaint-portal/pkg/model"
	"github.com/weiwei-tsao/complaint-portal/pkg/util"
)

const statsPath = "/api/submittedreports/stats"

// Snapshotter produces the dashboard snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (model.StatsSnapshot, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router. Zero values disable the optional middleware.
type Options struct {
	AllowedOrigins string
	StatsTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         logrus.FieldLogger
}

// Router wires HTTP handlers.
type Router struct {
	stats   Snapshotter
	store   Pinger
	origins string
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewRouter(stats Snapshotter, store Pinger, opts Options) *gin.Engine {
	r := &Router{
		stats:   stats,
		store:   store,
		origins: opts.AllowedOrigins,
		timeout: opts.StatsTimeout,
		log:     opts.Logger,
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}

	router := gin.New()
	// Every route is read-only, so any other method on a known path is a 405.
	router.HandleMethodNotAllowed = true
	router.NoMethod(methodNotAllowed(http.MethodGet))
	router.Use(requestID(), accessLog(r.log), recovery(r.log), r.corsMiddleware())
	if opts.RateLimitRPS > 0 {
		router.Use(rateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", r.ready)

	router.GET(statsPath, r.getStats)

	return router
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := "*"
		for _, o := range trimmed {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, If-None-Match")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Expose-Headers", "ETag, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *Router) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	snap, err := r.stats.Snapshot(ctx)
	if err != nil {
		r.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("stats snapshot failed")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "Server Error",
			Error:   err.Error(),
		})
		return
	}

	body, err := json.Marshal(snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: "Server Error", Error: err.Error()})
		return
	}
	etag := `"` + util.HashBytes(body) + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (r *Router) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := r.store.Ping(ctx); err != nil {
		r.log.WithError(err).Warn("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func methodNotAllowed(allowed ...string) gin.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(c *gin.Context) {
		c.Header("Allow", allow)
		c.JSON(http.StatusMethodNotAllowed, model.ErrorResponse{
			Success: false,
			Message: "Method Not Allowed",
		})
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
