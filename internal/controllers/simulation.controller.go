package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
	"memviz/internal/services"
)

// SimulationController exposes the dashboard's simulation controls over HTTP
type SimulationController struct {
	dashboard *services.Dashboard
	log       *logrus.Entry
}

func NewSimulationController(dashboard *services.Dashboard) *SimulationController {
	return &SimulationController{
		dashboard: dashboard,
		log:       logrus.StandardLogger().WithField("type", "controllers/simulation"),
	}
}

// GetView returns the complete current view
func (sc *SimulationController) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "view": sc.dashboard.View()})
}

func (sc *SimulationController) Start(c *gin.Context) {
	var req services.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	view, err := sc.dashboard.Start(c.Request.Context(), req)
	sc.respond(c, view, err, "Simulation started successfully")
}

func (sc *SimulationController) Step(c *gin.Context) {
	var req services.StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	view, err := sc.dashboard.Step(c.Request.Context(), req)
	sc.respond(c, view, err, "")
}

func (sc *SimulationController) Reset(c *gin.Context) {
	view, err := sc.dashboard.Reset(c.Request.Context())
	sc.respond(c, view, err, "Simulation reset successfully")
}

// Results proxies the simulation service's analytics
func (sc *SimulationController) Results(c *gin.Context) {
	results, err := sc.dashboard.Results(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": results})
}

// DismissNotification closes a notification early
func (sc *SimulationController) DismissNotification(c *gin.Context) {
	if !sc.dashboard.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (sc *SimulationController) respond(c *gin.Context, view models.ViewState, err error, message string) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			sc.log.WithError(err).WithField("path", c.FullPath()).Warn("simulation request failed")
		}
		c.JSON(status, gin.H{"status": "error", "message": err.Error(), "view": view})
		return
	}

	body := gin.H{"status": "success", "view": view}
	if message != "" {
		body["message"] = message
	}
	c.JSON(http.StatusOK, body)
}

// statusFor maps dashboard errors to HTTP statuses
func statusFor(err error) int {
	var validationErr *services.ValidationError
	var svcErr *services.ServiceError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoSimulation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrActive):
		return http.StatusConflict
	case errors.As(err, &svcErr):
		if svcErr.StatusCode >= 400 && svcErr.StatusCode < 500 {
			return svcErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
