package router

import (
	"net/http"
	"time"

	"bitvote/internal/auth"
	"bitvote/internal/bill"
	"bitvote/internal/feedback"
	"bitvote/internal/logger"
	"bitvote/internal/metrics"
	"bitvote/internal/middleware"
	"bitvote/internal/realtime"
	"bitvote/internal/reservation"
	"bitvote/internal/restaurant"
	"bitvote/internal/session"
	"bitvote/internal/vote"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the handlers and shared infrastructure the API is built from.
// Reservations is nil when telephony is not configured.
type Deps struct {
	Log          *zap.Logger
	Metrics      *metrics.Metrics
	Tokens       middleware.TokenValidator
	AllowOrigins []string
	CallsPerMin  int

	Restaurants  *restaurant.Handler
	Votes        *vote.Handler
	Sessions     *session.Handler
	Realtime     *realtime.Handler
	Feedback     *feedback.Handler
	Reservations *reservation.Handler
}

func New(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		logger.RequestID(),
		logger.GinMiddleware(d.Log),
		logger.Recovery(d.Log),
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(d.AllowOrigins) == 0 || d.AllowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.AllowOrigins
	}
	r.Use(cors.New(corsCfg))

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// ───────────────────────── SEARCH ─────────────────────────
	r.GET("/restaurants", d.Restaurants.Search)

	// ───────────────────────── VOTES ─────────────────────────
	votes := r.Group("/votes")
	{
		votes.POST("", d.Votes.Cast)
		votes.GET("", d.Votes.Tallies)
		votes.GET("/spin", d.Votes.Spin)
	}

	// ───────────────────────── SESSIONS ─────────────────────────
	sessions := r.Group("/sessions")
	{
		sessions.POST("", d.Sessions.Save)
		sessions.GET("", d.Sessions.Get)
		sessions.POST("/join", d.Sessions.Join)
		sessions.DELETE("/:code",
			middleware.MemberAuth(d.Tokens, "code"),
			middleware.RequireRole(auth.RoleHost),
			d.Sessions.Delete,
		)
	}

	r.GET("/ws/:code", middleware.MemberAuth(d.Tokens, "code"), d.Realtime.Serve)

	// ───────────────────────── EXTRAS ─────────────────────────
	r.POST("/feedback", d.Feedback.Create)
	r.GET("/feedback", d.Feedback.List)

	r.POST("/bills/split", bill.SplitHandler)

	calls := middleware.NewIPRateLimiter(d.CallsPerMin).Middleware()
	if d.Reservations != nil {
		r.POST("/calls", calls, d.Reservations.Create)
	} else {
		r.POST("/calls", calls, func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reservation calls are not configured"})
		})
	}

	return r
}
