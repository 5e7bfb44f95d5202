package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/middleware"
	"github.com/Dantescur/msfback/internal/session"
)

type personalInfoRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type planRequest struct {
	PlanID        string `json:"plan_id"`
	BillingPeriod string `json:"billing_period"`
}

type addonsRequest struct {
	Addons []string `json:"addons"`
}

type stepRequest struct {
	Step *int `json:"step"`
}

func (h *Handler) updatePersonalInfo(c *gin.Context) {
	var req personalInfoRequest
	if !bind(c, &req) {
		return
	}

	sess, err := h.engine.UpdatePersonalInfo(c.Request.Context(), sessionID(c), session.PersonalInfo{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) updatePlan(c *gin.Context) {
	var req planRequest
	if !bind(c, &req) {
		return
	}

	sess, err := h.engine.UpdatePlan(c.Request.Context(), sessionID(c), session.PlanSelection{
		PlanID:        req.PlanID,
		BillingPeriod: req.BillingPeriod,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) updateAddons(c *gin.Context) {
	var req addonsRequest
	if !bind(c, &req) {
		return
	}

	sess, err := h.engine.UpdateAddons(c.Request.Context(), sessionID(c), req.Addons)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) navigate(c *gin.Context) {
	var req stepRequest
	if !bind(c, &req) {
		return
	}
	if req.Step == nil {
		middleware.RespondError(c, session.NewError(session.KindValidationFailed, "invalid request", "step is required"))
		return
	}

	sess, err := h.engine.Navigate(c.Request.Context(), sessionID(c), *req.Step)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// bind decodes the JSON body into req, answering 400 on malformed input.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondError(c, session.NewError(session.KindValidationFailed, "invalid request body", err.Error()))
		return false
	}
	return true
}
