package restaurant

import (
	"net/http"
	"strconv"
	"strings"

	"bitvote/internal/apperror"
	"bitvote/internal/config"
	"bitvote/internal/geo"
	"bitvote/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service       *Service
	defaultRadius int
	maxRadius     int
	log           *zap.Logger
}

func NewHandler(service *Service, search config.SearchConfig, log *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		defaultRadius: search.DefaultRadius,
		maxRadius:     search.MaxRadius,
		log:           log,
	}
}

// --------------------------------------------------
// GET /restaurants
// --------------------------------------------------
func (h *Handler) Search(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		c.JSON(apperror.Status(err), apperror.Body(err))
		return
	}

	results, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		status := apperror.Status(err)
		if status >= http.StatusInternalServerError {
			logger.FromGin(c, h.log).Error("restaurant search failed", zap.Error(err))
		}
		c.JSON(status, apperror.Body(err))
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) parseQuery(c *gin.Context) (SearchQuery, error) {
	q := SearchQuery{
		Address: strings.TrimSpace(c.Query("location")),
		Cuisine: strings.TrimSpace(c.Query("cuisine")),
		Radius:  h.radius(c.Query("radius")),
	}

	latRaw, hasLat := c.GetQuery("lat")
	lngRaw, hasLng := c.GetQuery("lng")
	if hasLat || hasLng {
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
		if errLat != nil || errLng != nil {
			return SearchQuery{}, ErrInvalidCoordinates
		}
		q.Coordinates = &geo.Point{Lat: lat, Lng: lng}
	}

	return q, nil
}

// radius falls back to the default for missing or non-positive values and
// clamps to the provider maximum.
func (h *Handler) radius(raw string) int {
	r, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || r <= 0 {
		return h.defaultRadius
	}
	if h.maxRadius > 0 && r > h.maxRadius {
		return h.maxRadius
	}
	return r
}
