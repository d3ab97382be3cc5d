package restaurant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitvote/internal/config"
	"bitvote/internal/geo"
	"bitvote/internal/places"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(f *fakePlaces) *gin.Engine {
	gin.SetMode(gin.TestMode)

	search := config.SearchConfig{DefaultRadius: 5000, MaxRadius: 50000, MaxResults: 4}
	svc := NewService(f, search, config.MapsConfig{DetailConcurrency: 4}, zap.NewNop(), nil)
	h := NewHandler(svc, search, zap.NewNop())

	r := gin.New()
	r.GET("/restaurants", h.Search)
	return r
}

func doGet(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Search_OK(t *testing.T) {
	f := &fakePlaces{
		nearby:  []places.Place{{ID: "p1", Name: "Kin Khao", Vicinity: "55 Cyril Magnin St", DistanceMeters: ptrF(300)}},
		details: map[string]*places.Detail{"p1": {Name: "Kin Khao", Rating: ptrF(4.6), PriceLevel: ptrI(2)}},
	}

	w := doGet(setupRouter(f), "/restaurants?lat=37.78&lng=-122.41&cuisine=thai")
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "p1", body[0]["id"])
	assert.Equal(t, "$$", body[0]["priceRange"])
	assert.Equal(t, 300.0, body[0]["distanceMeters"])
	assert.Equal(t, 4.6, body[0]["rating"])
	assert.Equal(t, 2.0, body[0]["priceLevel"])
	assert.Equal(t, "55 Cyril Magnin St", body[0]["vicinity"])

	assert.Equal(t, geo.Point{Lat: 37.78, Lng: -122.41}, f.lastNearby.Location)
	assert.Equal(t, 5000, f.lastNearby.Radius)
}

func TestHandler_Search_Radius(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 5000},
		{"&radius=abc", 5000},
		{"&radius=-10", 5000},
		{"&radius=0", 5000},
		{"&radius=1200", 1200},
		{"&radius=90000", 50000},
	}

	for _, tt := range tests {
		f := &fakePlaces{
			nearby:  []places.Place{{ID: "p"}},
			details: map[string]*places.Detail{"p": {Name: "P"}},
		}
		w := doGet(setupRouter(f), "/restaurants?lat=1&lng=1"+tt.query)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tt.want, f.lastNearby.Radius, "query %q", tt.query)
	}
}

func TestHandler_Search_Errors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		f      *fakePlaces
		status int
	}{
		{"missing location", "/restaurants", &fakePlaces{}, http.StatusBadRequest},
		{"bad lat", "/restaurants?lat=abc&lng=1", &fakePlaces{}, http.StatusBadRequest},
		{"lat only", "/restaurants?lat=1", &fakePlaces{}, http.StatusBadRequest},
		{"location not found", "/restaurants?location=atlantis", &fakePlaces{geocodeErr: places.ErrZeroResults}, http.StatusNotFound},
		{"no results", "/restaurants?lat=1&lng=1", &fakePlaces{nearby: []places.Place{}}, http.StatusNotFound},
		{"auth failure", "/restaurants?location=sf",
			&fakePlaces{geocodeErr: &places.StatusError{Status: "REQUEST_DENIED"}}, http.StatusForbidden},
		{"upstream failure", "/restaurants?lat=1&lng=1",
			&fakePlaces{nearbyErr: &places.StatusError{Status: "UNKNOWN_ERROR"}}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(setupRouter(tt.f), tt.url)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandler_Search_UpstreamDetails(t *testing.T) {
	f := &fakePlaces{geocodeErr: &places.StatusError{Status: "OVER_QUERY_LIMIT"}}

	w := doGet(setupRouter(f), "/restaurants?location=sf")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed to geocode location", body["error"])
	assert.Equal(t, "OVER_QUERY_LIMIT", body["details"])
}
