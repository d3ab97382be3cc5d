package vote

import (
	"net/http"

	"bitvote/internal/apperror"
	"bitvote/internal/logger"
	"bitvote/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// --------------------------------------------------
// POST /votes
// --------------------------------------------------
func (h *Handler) Cast(c *gin.Context) {
	var req Vote
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, voteError("invalid request body"))
		return
	}

	tally, err := h.service.Cast(c.Request.Context(), req)
	if err != nil {
		status := apperror.Status(err)
		if status >= http.StatusInternalServerError {
			logger.FromGin(c, h.log).Error("vote failed", zap.Error(err))
		}
		c.JSON(status, voteError(apperror.Body(err)["error"]))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"votes":   tally.Votes,
		"votedBy": tally.VotedBy,
	})
}

// --------------------------------------------------
// GET /votes?sessionId=
// --------------------------------------------------
func (h *Handler) Tallies(c *gin.Context) {
	sessionID := c.Query("sessionId")

	tallies, err := h.service.Tallies(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": session.NormalizeCode(sessionID),
		"tallies":   tallies,
	})
}

// --------------------------------------------------
// GET /votes/spin?sessionId=
// --------------------------------------------------
func (h *Handler) Spin(c *gin.Context) {
	picked, err := h.service.Spin(c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, picked)
}

func voteError(msg any) gin.H {
	return gin.H{
		"error":   msg,
		"votes":   0,
		"votedBy": []string{},
	}
}
