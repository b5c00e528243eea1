// Package web gin server
package web

import (
	"net/http"
	"net/url"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/dataroom/internal/dataroom"
	"github.com/Laisky/dataroom/library/log"
)

// defaultCORSOrigins allows the local frontend dev server.
var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// NewEngine builds the router with recovery, request logging, CORS and the
// dataroom API mounted under /api.
func NewEngine(handler *dataroom.HTTPHandler, cors *CORSPolicy) *gin.Engine {
	server := gin.New()
	// handlers pass *gin.Context down as context.Context
	server.ContextWithFallback = true
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		cors.Middleware,
	)

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	handler.Register(server)

	return server
}

// RunServer serves the API until the listener fails.
func RunServer(addr string, handler *dataroom.HTTPHandler) {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	origins := gconfig.Shared.GetStringSlice("settings.web.cors_origins")
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}

	server := NewEngine(handler, NewCORSPolicy(origins))
	if err := gmw.EnableMetric(server); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("httpServer exit", zap.Error(server.Run(addr)))
}

// CORSPolicy allows cross origin requests from a fixed set of origins.
type CORSPolicy struct {
	origins map[string]struct{}
}

// NewCORSPolicy accepts origins like "https://app.example.com".
// Entries that do not parse as scheme://host are ignored.
func NewCORSPolicy(origins []string) *CORSPolicy {
	p := &CORSPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if key, ok := normalizeOrigin(origin); ok {
			p.origins[key] = struct{}{}
		}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (p *CORSPolicy) allowed(origin string) bool {
	key, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, ok = p.origins[key]
	return ok
}

// Middleware sets CORS headers for allowed origins and answers preflights.
func (p *CORSPolicy) Middleware(ctx *gin.Context) {
	origin := ctx.Request.Header.Get("Origin")
	if origin == "" {
		ctx.Next()
		return
	}

	if !p.allowed(origin) {
		// deny preflight from disallowed origins
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
		ctx.Next()
		return
	}

	ctx.Header("Access-Control-Allow-Origin", origin)
	ctx.Header("Access-Control-Allow-Credentials", "true")
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, HEAD")
	ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With")
	ctx.Header("Access-Control-Expose-Headers", "Content-Disposition, Content-Length")
	ctx.Header("Access-Control-Max-Age", "86400") // 24 hours
	ctx.Header("Vary", "Origin")

	if ctx.Request.Method == http.MethodOptions {
		ctx.AbortWithStatus(http.StatusNoContent)
		return
	}

	ctx.Next()
}
