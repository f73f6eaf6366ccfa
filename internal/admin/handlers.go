package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tiger/internal/filecache"
	"tiger/internal/server"
)

// HealthResponse は /health の応答
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse は /api/status の応答
type StatusResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	RootFolder string           `json:"root_folder"`
	Server     server.Snapshot  `json:"server"`
	Cache      *filecache.Stats `json:"cache,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はステータス確認エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	response := StatusResponse{
		Status:     "running",
		Version:    s.info.Version,
		RootFolder: s.info.RootFolder,
		Server:     s.source.Snapshot(),
		Timestamp:  time.Now(),
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		response.Cache = &stats
	}
	if response.Server.Pool.Closed {
		response.Status = "stopped"
	}

	c.JSON(http.StatusOK, response)
}

// handleRoot は埋め込みの管理画面を返す
func (s *Server) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
