// Package api exposes simulations over HTTP: submit a configuration,
// poll its progress, and fetch logs and period summaries when it is done.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"main/internal/obs"
	"main/internal/sim"
	"main/internal/telemetry"
)

// Server binds the simulation registry to HTTP handlers.
type Server struct {
	registry *Registry
	metrics  *obs.Metrics
}

// NewServer builds a server around a fresh registry. Metrics may be nil.
func NewServer(metrics *obs.Metrics) *Server {
	return &Server{registry: NewRegistry(metrics), metrics: metrics}
}

// Close cancels every simulation still running in the registry.
func (s *Server) Close() {
	s.registry.Close()
}

// Router builds the gin engine with all routes installed.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/simulations", s.startSimulation)
	v1.GET("/simulations/:id", s.simulationStatus)
	v1.GET("/simulations/:id/stats", s.simulationStats)
	v1.GET("/simulations/:id/logs/:name", s.simulationLog)
	v1.GET("/metrics", s.metricsSnapshot)
	return router
}

type startRequest struct {
	Config          sim.Config `json:"config"`
	DeadlineSeconds float64    `json:"deadlineSeconds"`
}

func (s *Server) startSimulation(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	req.Config.Silent = true
	deadline := time.Duration(req.DeadlineSeconds * float64(time.Second))
	id, err := s.registry.Start(req.Config, deadline)
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "state": RunStateRunning})
}

func (s *Server) simulationStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	st, err := s.registry.Status(id)
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) simulationStats(c *gin.Context) {
	sm, ok := s.finishedSim(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": sm.PeriodStats()})
}

func (s *Server) simulationLog(c *gin.Context) {
	sm, ok := s.finishedSim(c)
	if !ok {
		return
	}
	name := c.Param("name")
	log := sm.MemoryLog(name)
	if log == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND",
			errors.New("unknown log").With("name", name))
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "rows": log.Rows()})
}

func (s *Server) metricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) finishedSim(c *gin.Context) (*sim.Simulation, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	sm, err := s.registry.Result(id)
	if err != nil {
		st, serr := s.registry.Status(id)
		if serr == nil && st.State == RunStateRunning {
			fail(c, http.StatusConflict, "STILL_RUNNING", err)
			return nil, false
		}
		fail(c, http.StatusNotFound, "NOT_FOUND", err)
		return nil, false
	}
	return sm, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func fail(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}

// recovery turns panics into a structured 500 instead of a dropped
// connection.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL_ERROR", "message": msg},
		})
		c.Abort()
	})
}

// LogNames lists the log identifiers valid for the log endpoint.
func LogNames() []string { return telemetry.LogNames }
