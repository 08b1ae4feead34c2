// Package api exposes the merit service over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"meritboard/internal/auth"
	"meritboard/internal/httpmiddleware"
	"meritboard/internal/merit"
	"meritboard/internal/store"
)

// Deps are the collaborators the router wires into handlers. Optional fields
// may be left nil.
type Deps struct {
	Service *merit.Service
	Issuer  auth.Issuer
	Store   store.Store
	Logger  *slog.Logger

	Redis          *store.Redis
	LoginGuard     *httpmiddleware.LoginGuard
	RateLimiter    *httpmiddleware.SimpleTokenBucket
	RequestMetrics *httpmiddleware.RequestMetrics
	MetricsHandler http.Handler
}

type handlers struct {
	svc   *merit.Service
	store store.Store
	redis *store.Redis
	log   *slog.Logger
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{svc: d.Service, store: d.Store, redis: d.Redis, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health", "/metrics"},
	}))
	if d.RequestMetrics != nil {
		r.Use(d.RequestMetrics.GinMiddleware())
	}
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.GinMiddleware())
	}

	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	r.GET("/api/health", h.health)
	r.GET("/api/ready", h.ready)

	loginChain := []gin.HandlerFunc{}
	if d.LoginGuard != nil {
		loginChain = append(loginChain, d.LoginGuard.Middleware())
	}
	r.POST("/api/auth/login", append(loginChain, h.login)...)

	authed := r.Group("/api", auth.RequireIdentity(d.Issuer))
	authed.GET("/students/:id", h.getStudent)

	admin := authed.Group("/admin")
	admin.POST("/add-student", auth.RequireAction(auth.ActionManageStudents), h.addStudent)
	admin.POST("/assign-points", auth.RequireAction(auth.ActionManageStudents), h.assignPoints)
	admin.GET("/leaderboard", auth.RequireAction(auth.ActionViewLeaderboard), h.leaderboard)
	admin.DELETE("/students/:id", auth.RequireAction(auth.ActionManageStudents), h.deleteStudent)
	admin.DELETE("/students/:id/activities/:activityId", auth.RequireAction(auth.ActionManageStudents), h.removeActivity)
	admin.GET("/export/csv", auth.RequireAction(auth.ActionExportReport), h.exportCSV)

	return r
}
