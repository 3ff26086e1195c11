// Package api exposes a read-only status surface over the running bot:
// open positions, recent trades, loop metrics and a trade event stream.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"coinhunter/internal/events"
	"coinhunter/internal/monitor"
	"coinhunter/internal/position"
	"coinhunter/internal/tradelog"
)

// Server wires HTTP endpoints around the trading state.
type Server struct {
	Router  *gin.Engine
	Bus     *events.Bus
	Store   *position.Store
	Trades  *tradelog.Recorder
	Metrics *monitor.Metrics
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Mode    string   `json:"mode"`
	Symbols []string `json:"symbols"`
	Version string   `json:"version"`
}

func NewServer(bus *events.Bus, store *position.Store, trades *tradelog.Recorder, metrics *monitor.Metrics, meta SystemMeta) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:  r,
		Bus:     bus,
		Store:   store,
		Trades:  trades,
		Metrics: metrics,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/positions", s.getPositions)
		api.GET("/trades", s.getTrades)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":       s.Meta.Mode,
		"symbols":    s.Meta.Symbols,
		"version":    s.Meta.Version,
		"open_count": len(s.Store.All()),
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Store.All()})
}

func (s *Server) getTrades(c *gin.Context) {
	symbol := c.Query("symbol")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	logs, err := s.Trades.Recent(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": logs})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
