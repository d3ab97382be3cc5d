package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitvote/internal/auth"
	"bitvote/internal/config"
	"bitvote/internal/feedback"
	"bitvote/internal/geo"
	"bitvote/internal/metrics"
	"bitvote/internal/places"
	"bitvote/internal/realtime"
	"bitvote/internal/restaurant"
	"bitvote/internal/session"
	"bitvote/internal/vote"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noPlaces struct{}

func (noPlaces) Geocode(ctx context.Context, address string) (geo.Point, error) {
	return geo.Point{}, places.ErrZeroResults
}

func (noPlaces) Nearby(ctx context.Context, q places.NearbyQuery) ([]places.Place, error) {
	return []places.Place{}, nil
}

func (noPlaces) Details(ctx context.Context, placeID string) (*places.Detail, error) {
	return nil, places.ErrZeroResults
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	m := metrics.New()

	issuer, err := auth.NewTokenIssuer(config.JWTConfig{Secret: "router-test-secret", TokenTTL: time.Hour, Issuer: "bitvote"})
	require.NoError(t, err)

	hub := realtime.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	search := config.SearchConfig{DefaultRadius: 1500, MaxRadius: 50000, MaxResults: 4}
	votes := vote.NewInMemoryRepository()
	voteSvc := vote.NewService(votes, hub, log, m)
	t.Cleanup(voteSvc.Wait)

	return New(Deps{
		Log:          log,
		Metrics:      m,
		Tokens:       issuer,
		AllowOrigins: []string{"*"},
		CallsPerMin:  1,
		Restaurants:  restaurant.NewHandler(restaurant.NewService(noPlaces{}, search, config.MapsConfig{}, log, m), search, log),
		Votes:        vote.NewHandler(voteSvc, log),
		Sessions:     session.NewHandler(session.NewService(session.NewInMemoryRepository(), issuer, votes, hub, log), log),
		Realtime:     realtime.NewHandler(hub),
		Feedback:     feedback.NewHandler(feedback.NewService(feedback.NewInMemoryRepository())),
	})
}

func call(r *gin.Engine, method, url, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t)

	w := call(r, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	call(r, http.MethodGet, "/health", "", "")

	w := call(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bitvote_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/votes", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestSessionVoteFlow(t *testing.T) {
	r := newTestRouter(t)

	w := call(r, http.MethodPost, "/sessions", `{"code":"DINNER","groupData":{"name":"Dinner","members":[]}}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	join := func(user string) session.JoinResult {
		w := call(r, http.MethodPost, "/sessions/join", `{"code":"DINNER","userId":"`+user+`"}`, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res session.JoinResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		return res
	}
	host := join("alice")
	member := join("bob")
	assert.Equal(t, auth.RoleHost, host.Role)
	assert.Equal(t, auth.RoleMember, member.Role)

	w = call(r, http.MethodPost, "/votes", `{"restaurantId":"R1","sessionId":"DINNER","userId":"alice"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/votes", `{"restaurantId":"R2","sessionId":"DINNER","userId":"alice"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "R1")

	w = call(r, http.MethodGet, "/votes/spin?sessionId=DINNER", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"restaurantId":"R1"`)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodDelete, "/sessions/DINNER", "", "").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/sessions/DINNER", "", member.Token).Code)
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "/sessions/DINNER", "", host.Token).Code)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/sessions?code=DINNER", "", "").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/votes/spin?sessionId=DINNER", "", "").Code)
}

func TestSessionCodeCaseDoesNotSplitVotes(t *testing.T) {
	r := newTestRouter(t)

	w := call(r, http.MethodPost, "/sessions", `{"code":"abc123","groupData":{"name":"Lunch","members":[]}}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ABC123"`)

	w = call(r, http.MethodPost, "/sessions/join", `{"code":"abc123","userId":"alice"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var host session.JoinResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &host))

	w = call(r, http.MethodPost, "/votes", `{"restaurantId":"r1","sessionId":"ABC123","userId":"alice"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/votes", `{"restaurantId":"r2","sessionId":"abc123","userId":"alice"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "r1")

	w = call(r, http.MethodGet, "/votes?sessionId=abc123", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"votes":1`)

	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "/sessions/abc123", "", host.Token).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/votes/spin?sessionId=abc123", "", "").Code)
}

func TestRestaurantSearch_LocationRequired(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/restaurants", "", "").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/restaurants?location=nowhere", "", "").Code)
}

func TestBillSplitRoute(t *testing.T) {
	r := newTestRouter(t)
	w := call(r, http.MethodPost, "/bills/split", `{"total":30,"tipPercent":0,"members":["a","b","c"]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shares"`)
}

func TestCallsRoute_DisabledAndRateLimited(t *testing.T) {
	r := newTestRouter(t)

	w := call(r, http.MethodPost, "/calls", `{}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = call(r, http.MethodPost, "/calls", `{}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
