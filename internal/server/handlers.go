package server

import (
	"log/slog"
	"net/http"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	apperrors "github.com/Shyamsaitejamandibi/votii/internal/errors"
	"github.com/Shyamsaitejamandibi/votii/internal/logging"
	"github.com/Shyamsaitejamandibi/votii/internal/metrics"
	"github.com/Shyamsaitejamandibi/votii/internal/wordcloud"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers embed the cloud from arbitrary origins
	},
}

// --- Topic API ---

type createTopicRequest struct {
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
}

type createTopicResponse struct {
	Topic string `json:"topic"`
	Role  string `json:"role"`
}

func (s *Server) handleCreateTopic(c echo.Context) error {
	var req createTopicRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ClientID == "" {
		return apperrors.ValidationError("client_id is required")
	}
	if err := domain.ValidateTopic(req.Topic); err != nil {
		return err
	}

	role, err := s.store.CreateTopic(c.Request().Context(), req.Topic, req.ClientID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createTopicResponse{Topic: req.Topic, Role: role})
}

type topicResponse struct {
	Topic   string `json:"topic"`
	Viewers int    `json:"viewers"`
}

func (s *Server) handleGetTopic(c echo.Context) error {
	topic := c.Param("topic")
	if err := s.requireTopic(c, topic); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, topicResponse{
		Topic:   topic,
		Viewers: s.mux.MemberCount(topic),
	})
}

type submitCommentRequest struct {
	Comment string `json:"comment"`
}

type submitCommentResponse struct {
	Status string `json:"status"`
	Words  int    `json:"words"`
}

func (s *Server) handleSubmitComment(c echo.Context) error {
	topic := c.Param("topic")
	if err := s.requireTopic(c, topic); err != nil {
		return err
	}

	var req submitCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if !s.commentLimiter.Allow(topic) {
		metrics.CommentsRateLimited.Inc()
		return apperrors.RateLimitedError("too many comments for this topic").
			WithContext("topic", topic)
	}

	ctx := c.Request().Context()
	batch := wordcloud.Tokenize(req.Comment)
	if len(batch) == 0 {
		return c.JSON(http.StatusOK, submitCommentResponse{Status: "ok", Words: 0})
	}

	if err := s.store.ApplyDeltas(ctx, topic, batch); err != nil {
		return apperrors.InternalError("failed to record comment", err).
			WithContext("topic", topic)
	}
	s.snapshots.Invalidate(topic)

	if err := s.broker.Publish(ctx, topic, batch); err != nil {
		// The counts are durable, only the live push failed. Viewers catch
		// up from the next snapshot.
		logging.WithTopic(topic).Warn("failed to publish comment batch",
			slog.String("error", err.Error()))
	}

	metrics.CommentsProcessed.Inc()
	return c.JSON(http.StatusOK, submitCommentResponse{Status: "ok", Words: len(batch)})
}

type cloudResponse struct {
	Topic string             `json:"topic"`
	Words []domain.WordCount `json:"words"`
}

func (s *Server) handleCloud(c echo.Context) error {
	topic := c.Param("topic")
	if err := s.requireTopic(c, topic); err != nil {
		return err
	}

	words, err := s.snapshots.TopWords(c.Request().Context(), topic, snapshotLimit)
	if err != nil {
		return apperrors.InternalError("failed to load word cloud", err).
			WithContext("topic", topic)
	}

	return c.JSON(http.StatusOK, cloudResponse{Topic: topic, Words: words})
}

func (s *Server) handleStats(c echo.Context) error {
	served, err := s.store.ServedRequests(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load stats", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"served_requests": served,
		"active_rooms":    s.mux.RoomCount(),
	})
}

// requireTopic validates the topic name and confirms it exists.
func (s *Server) requireTopic(c echo.Context, topic string) error {
	if err := domain.ValidateTopic(topic); err != nil {
		return err
	}

	exists, err := s.store.TopicExists(c.Request().Context(), topic)
	if err != nil {
		return apperrors.InternalError("failed to check topic", err).
			WithContext("topic", topic)
	}
	if !exists {
		return domain.ErrTopicNotFound
	}
	return nil
}

// --- WebSocket handler ---

func (s *Server) handleWebSocket(c echo.Context) error {
	topic := c.Param("topic")
	if err := s.requireTopic(c, topic); err != nil {
		return err
	}

	// Fetch the seed before upgrading so a store failure still yields a
	// clean HTTP error.
	seed, err := s.snapshots.TopWords(c.Request().Context(), topic, snapshotLimit)
	if err != nil {
		return apperrors.InternalError("failed to load initial snapshot", err).
			WithContext("topic", topic)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return nil
	}

	connID := uuid.New()
	logger := logging.WithConnection(connID.String())
	writer := newClientWriter(conn, s.clock, logger)

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	// The seed frame is queued before Join, so it reaches the client ahead
	// of any delta fanned out to the room.
	writer.Seed(seed)

	if err := s.mux.Register(connID, writer); err != nil {
		logger.Warn("failed to register connection", slog.String("error", err.Error()))
		writer.stop()
		return nil
	}

	if err := s.mux.Join(connID, topic); err != nil {
		logger.Warn("failed to join room",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		s.mux.LeaveAll(connID)
		writer.stop()
		return nil
	}

	logger.Info("viewer connected", slog.String("topic", topic))

	// Read pump. Inbound frames are ignored, the loop only detects
	// disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mux.LeaveAll(connID)
	writer.stop()
	logger.Info("viewer disconnected", slog.String("topic", topic))

	return nil
}
