package status

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/tailpipe/component"
	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
	"github.com/kbukum/tailpipe/version"
)

type healthResponse struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

func (s *Server) handleHealth(c *gin.Context) {
	var healths []component.Health
	if s.health != nil {
		healths = s.health(c.Request.Context())
	}
	overall := component.Overall(healths)

	code := http.StatusOK
	if overall == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, healthResponse{
		Status:     overall,
		Service:    s.service,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: healths,
	})
}

func (s *Server) handleAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.service,
		"build":   version.Get(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Stats())
}

func (s *Server) handleRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"routes": s.pipeline.Routes()})
}

type faultRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleFault(c *gin.Context) {
	var req faultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.InvalidInput("message", "a non-empty message is required").WithCause(err))
		return
	}

	route := c.Param("name")
	if err := s.pipeline.InjectFault(c.Request.Context(), route, stderrors.New(req.Message)); err != nil {
		abort(c, err)
		return
	}
	s.log.Warn("fault injected", logger.Fields(logger.FieldRoute, route, "message", req.Message))
	c.JSON(http.StatusAccepted, gin.H{"route": route, "injected": true})
}

func abort(c *gin.Context, err error) {
	resp := errors.ResponseFor(err)
	c.AbortWithStatusJSON(httpStatus(resp.Error.Code), resp)
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeInvalidInput, errors.ErrCodeMissingField:
		return http.StatusBadRequest
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
