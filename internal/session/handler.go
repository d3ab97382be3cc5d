package session

import (
	"net/http"

	"bitvote/internal/apperror"
	"bitvote/internal/logger"

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
// POST /sessions
// --------------------------------------------------
func (h *Handler) Save(c *gin.Context) {
	var req struct {
		Code      string    `json:"code"`
		GroupData GroupData `json:"groupData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := h.service.Save(c.Request.Context(), req.Code, req.GroupData)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "session": sess})
}

// --------------------------------------------------
// GET /sessions?code=
// --------------------------------------------------
func (h *Handler) Get(c *gin.Context) {
	sess, err := h.service.Get(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// --------------------------------------------------
// POST /sessions/join
// --------------------------------------------------
func (h *Handler) Join(c *gin.Context) {
	var req struct {
		Code     string `json:"code"`
		UserID   string `json:"userId"`
		Passcode string `json:"passcode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Join(c.Request.Context(), req.Code, req.UserID, req.Passcode)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// --------------------------------------------------
// HOST: DELETE /sessions/:code
// --------------------------------------------------
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c, h.log).Error("session request failed", zap.Error(err))
	}
	c.JSON(status, apperror.Body(err))
}
