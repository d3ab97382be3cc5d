package vote

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(repo Repository) (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := newService(repo, nil)
	h := NewHandler(svc, zap.NewNop())

	r := gin.New()
	r.POST("/votes", h.Cast)
	r.GET("/votes", h.Tallies)
	r.GET("/votes/spin", h.Spin)
	return r, svc
}

func postVote(r *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/votes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHandler_Cast_Success(t *testing.T) {
	r, _ := setupRouter(NewInMemoryRepository())

	w, body := postVote(r, `{"restaurantId":"r1","sessionId":"S1","userId":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["votes"])
	assert.Equal(t, []any{"alice"}, body["votedBy"])
}

func TestHandler_Cast_Duplicate(t *testing.T) {
	r, _ := setupRouter(NewInMemoryRepository())

	postVote(r, `{"restaurantId":"r1","sessionId":"S1","userId":"alice"}`)
	w, body := postVote(r, `{"restaurantId":"r2","sessionId":"S1","userId":"alice"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "r1")
	assert.Equal(t, 0.0, body["votes"])
	assert.Equal(t, []any{}, body["votedBy"])
}

func TestHandler_Cast_InvalidInput(t *testing.T) {
	r, _ := setupRouter(NewInMemoryRepository())

	for _, payload := range []string{
		`not json`,
		`{"sessionId":"S1","userId":"alice"}`,
		`{"restaurantId":"r1","sessionId":"","userId":"alice"}`,
	} {
		w, body := postVote(r, payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.NotEmpty(t, body["error"])
		assert.Equal(t, 0.0, body["votes"])
		assert.Equal(t, []any{}, body["votedBy"])
	}
}

func TestHandler_Cast_PersistenceFailure(t *testing.T) {
	repo := &failingRepository{InMemoryRepository: NewInMemoryRepository(), castErr: errors.New("tx aborted")}
	r, _ := setupRouter(repo)

	w, body := postVote(r, `{"restaurantId":"r1","sessionId":"S1","userId":"alice"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to record vote", body["error"])
	assert.Equal(t, []any{}, body["votedBy"])
}

func TestHandler_TalliesAndSpin(t *testing.T) {
	r, _ := setupRouter(NewInMemoryRepository())

	postVote(r, `{"restaurantId":"r1","sessionId":"S1","userId":"alice"}`)
	postVote(r, `{"restaurantId":"r1","sessionId":"S1","userId":"bob"}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/votes?sessionId=S1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var tallies struct {
		SessionID string  `json:"sessionId"`
		Tallies   []Tally `json:"tallies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tallies))
	assert.Equal(t, "S1", tallies.SessionID)
	require.Len(t, tallies.Tallies, 1)
	assert.Equal(t, []string{"alice", "bob"}, tallies.Tallies[0].VotedBy)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/votes/spin?sessionId=S1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var picked Tally
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &picked))
	assert.Equal(t, "r1", picked.RestaurantID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/votes/spin?sessionId=EMPTY", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/votes", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
