package bill

import (
	"net/http"

	"bitvote/internal/apperror"

	"github.com/gin-gonic/gin"
)

// --------------------------------------------------
// POST /bills/split
// --------------------------------------------------
func SplitHandler(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	split, err := Calculate(req)
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, split)
}
