package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/circuit"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Channel int32  `json:"channel"`
}

type imRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// handleChat queues a local chat line.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.submit(c, circuit.ChatIntent(req.Message, req.Channel))
}

// handleInstantMessage queues an IM to another agent.
func (s *Server) handleInstantMessage(c *gin.Context) {
	var req imRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := uuid.Parse(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an agent UUID"})
		return
	}
	s.submit(c, circuit.InstantMessageIntent(to, req.Message))
}

// handleLogout asks the simulator to end the session.
func (s *Server) handleLogout(c *gin.Context) {
	s.submit(c, circuit.LogoutIntent())
}

func (s *Server) submit(c *gin.Context, in circuit.Intent) {
	err := s.circuit.Submit(in)
	switch {
	case err == nil:
		log.Info().Str("intent", in.Kind.String()).Msg("API: intent queued")
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "intent": in.Kind.String()})
	case errors.Is(err, circuit.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, circuit.ErrCircuitClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
