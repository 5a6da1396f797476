package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "tradingagent",
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

func toMB(bytes uint64) float64 {
	return float64(bytes) / 1024 / 1024
}

// handleGetStatus reports process uptime, memory use, and the reachability
// of the persistence store, mirroring what an operator dashboard polls.
func (s *Server) handleGetStatus(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	dbStatus := "not_configured"
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			dbStatus = "unreachable"
		} else {
			dbStatus = "ok"
		}
	}

	paused := false
	if s.paused != nil {
		paused = s.paused()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
		"paused": paused,
		"components": gin.H{
			"database": dbStatus,
		},
		"system": gin.H{
			"goroutines": runtime.NumGoroutine(),
			"alloc_mb":   toMB(mem.Alloc),
			"sys_mb":     toMB(mem.Sys),
			"num_gc":     mem.NumGC,
		},
	})
}

// handleGetHealth is the cheap liveness/readiness check: it only verifies
// the database is reachable, not that the pipeline is making progress.
func (s *Server) handleGetHealth(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "not_configured"})
		return
	}
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListPositions(c *gin.Context) {
	if s.positions == nil {
		c.JSON(http.StatusOK, gin.H{"positions": []any{}, "total_value_usd": 0})
		return
	}
	snapshot := s.positions.Load()
	positions := make(gin.H, len(snapshot.Positions))
	for mint, pos := range snapshot.Positions {
		positions[mint.String()] = pos
	}
	c.JSON(http.StatusOK, gin.H{
		"positions":       positions,
		"total_value_usd": snapshot.TotalValueUSD(),
	})
}

func (s *Server) handleGetPosition(c *gin.Context) {
	if s.positions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no positions tracked"})
		return
	}
	mint, err := agentcore.ParseTokenID(c.Param("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint: " + err.Error()})
		return
	}
	snapshot := s.positions.Load()
	pos, ok := snapshot.Positions[mint]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open position for mint"})
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) handleExecutorStats(c *gin.Context) {
	if s.executor == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, s.executor.Stats())
}

func (s *Server) handleObserverStats(c *gin.Context) {
	if s.observer == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, s.observer.Stats())
}

func (s *Server) handleGetLearning(c *gin.Context) {
	if s.learning == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, s.learning.Load())
}
