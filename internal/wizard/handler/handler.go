// Package handler exposes the wizard engine over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/catalog"
	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/middleware"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/submission"
	"github.com/Dantescur/msfback/internal/wizard"
)

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	engine  *wizard.Engine
	catalog *catalog.Catalog
	store   Pinger
	cookie  session.CookieOptions
}

func NewHandler(
	engine *wizard.Engine,
	cat *catalog.Catalog,
	store Pinger,
	cookie session.CookieOptions,
) *Handler {
	return &Handler{
		engine:  engine,
		catalog: cat,
		store:   store,
		cookie:  cookie,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/catalog", h.getCatalog)
	api.POST("/sessions", h.initSession)

	byID := api.Group("/sessions/:id", middleware.RequireSessionID("id"))
	byID.GET("", h.getSession)
	byID.DELETE("", h.deleteSession)
	byID.PUT("/personal-info", h.updatePersonalInfo)
	byID.PUT("/plan", h.updatePlan)
	byID.PUT("/addons", h.updateAddons)
	byID.PUT("/step", h.navigate)
	byID.POST("/submit", h.submit)
	byID.GET("/submissions", h.listSubmissions)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.Warn("health check failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"plans":  h.catalog.Plans(),
		"addons": h.catalog.Addons(),
	})
}

func (h *Handler) initSession(c *gin.Context) {
	sess, err := h.engine.Init(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	session.SetCookie(c.Writer, *sess, wizard.SessionTTL, h.cookie)
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.engine.Load(c.Request.Context(), sessionID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.engine.Delete(c.Request.Context(), sessionID(c)); err != nil {
		middleware.RespondError(c, err)
		return
	}

	session.ClearCookie(c.Writer, h.cookie)
	c.Status(http.StatusNoContent)
}

func (h *Handler) submit(c *gin.Context) {
	conf, err := h.engine.Submit(c.Request.Context(), sessionID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	list, err := h.engine.History(c.Request.Context(), sessionID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if list == nil {
		list = []submission.Confirmation{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": list})
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}
