package feedback

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
// POST /feedback
// --------------------------------------------------
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	f, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusCreated, f)
}

// --------------------------------------------------
// GET /feedback?sessionId=
// --------------------------------------------------
func (h *Handler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, items)
}
