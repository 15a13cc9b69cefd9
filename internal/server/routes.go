package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Topic API
	s.echo.POST("/api/topics", s.handleCreateTopic)
	s.echo.GET("/api/topics/:topic", s.handleGetTopic)
	s.echo.POST("/api/topics/:topic/comments", s.handleSubmitComment)
	s.echo.GET("/api/topics/:topic/cloud", s.handleCloud)
	s.echo.GET("/api/stats", s.handleStats)

	// Viewer feed
	s.echo.GET("/ws/:topic", s.handleWebSocket)
}
