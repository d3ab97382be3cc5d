package reservation

import (
	"net/http"

	"bitvote/internal/apperror"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// POST /calls
// --------------------------------------------------
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	call, err := h.service.Call(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sid":     call.SID,
		"status":  call.Status,
	})
}
