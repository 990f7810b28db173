// Package handler exposes the hostel services over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostel/internal/attendance"
	"hostel/internal/auth"
	"hostel/internal/httpmiddleware"
	"hostel/internal/model"
	"hostel/internal/report"
	"hostel/internal/roster"
)

// Check probes one dependency for /healthz.
type Check func(ctx context.Context) error

// Handler holds the services behind the routes.
type Handler struct {
	Roster     *roster.Service
	Attendance *attendance.Service
	Reports    report.Generator
	Auth       *auth.Authenticator
	Limiter    *httpmiddleware.SimpleTokenBucket
	Checks     map[string]Check
	Metrics    http.Handler
	Log        *zap.Logger
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.Limiter != nil {
		limit = h.Limiter.GinMiddleware()
	}

	r.GET("/healthz", h.health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	r.POST("/v1/auth/login", limit, h.login)
	r.POST("/v1/auth/refresh", limit, h.refresh)

	v1 := r.Group("/v1", auth.Bearer(h.Auth.SigningKey, h.Auth.Issuer), limit)
	admin := auth.RequireRole(model.RoleAdmin)

	v1.GET("/me", h.me)
	v1.GET("/dashboard", h.dashboard)

	v1.GET("/rooms", h.listRooms)
	v1.GET("/rooms/:id", h.getRoom)
	v1.GET("/rooms/:id/students", h.roomStudents)
	v1.POST("/rooms", admin, h.createRoom)
	v1.PUT("/rooms/:id", admin, h.updateRoom)
	v1.DELETE("/rooms/:id", admin, h.deleteRoom)
	v1.POST("/occupancy/recount", admin, h.recount)

	v1.GET("/students", h.listStudents)
	v1.GET("/students/:id", h.getStudent)
	v1.POST("/students", admin, h.createStudent)
	v1.PUT("/students/:id", admin, h.updateStudent)
	v1.DELETE("/students/:id", admin, h.deleteStudent)
	v1.POST("/students/:id/photo", admin, h.uploadPhoto)
	v1.GET("/students/:id/attendance", h.studentAttendance)

	v1.GET("/attendance", h.day)
	v1.POST("/attendance", h.mark)

	v1.GET("/reports/attendance", h.download)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.Checks {
		healthy := check(ctx) == nil
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// fail writes err as {"error": ...} with a status derived from its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= 500 {
		_ = c.Error(err)
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrStore), errors.Is(err, roster.ErrPhotosDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// badRequest reports a body that could not be decoded.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}
