package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitvote/internal/config"
	"bitvote/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.MapsConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestGeocode_OK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Union Square, SF", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":37.788,"lng":-122.407}}}]}`))
	})

	p, err := c.Geocode(context.Background(), "Union Square, SF")
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 37.788, Lng: -122.407}, p)
}

func TestGeocode_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := c.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrZeroResults)
}

func TestGeocode_RequestDenied(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`))
	})

	_, err := c.Geocode(context.Background(), "anywhere")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.IsAuth())
	assert.Equal(t, "The provided API key is invalid.", statusErr.Message)
}

func TestGeocode_HTTPForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Geocode(context.Background(), "anywhere")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.IsAuth())
	assert.Equal(t, http.StatusForbidden, statusErr.HTTPStatus)
}

func TestNearby_OK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "37.788,-122.407", q.Get("location"))
		assert.Equal(t, "1500", q.Get("radius"))
		assert.Equal(t, "restaurant", q.Get("type"))
		assert.Equal(t, "thai", q.Get("keyword"))
		w.Write([]byte(`{"status":"OK","results":[
			{"place_id":"p1","name":"Kin Khao","rating":4.5,"price_level":2,"vicinity":"55 Cyril Magnin St","geometry":{"location":{"lat":37.785,"lng":-122.409}}},
			{"place_id":"p2","name":"No Rating","vicinity":"1 Main St","geometry":{"location":{"lat":37.79,"lng":-122.4}}}
		]}`))
	})

	got, err := c.Nearby(context.Background(), NearbyQuery{
		Location: geo.Point{Lat: 37.788, Lng: -122.407},
		Radius:   1500,
		Type:     "restaurant",
		Keyword:  "thai",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].ID)
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, 4.5, *got[0].Rating)
	require.NotNil(t, got[0].PriceLevel)
	assert.Equal(t, 2, *got[0].PriceLevel)
	assert.Nil(t, got[0].DistanceMeters)

	assert.Nil(t, got[1].Rating)
	assert.Nil(t, got[1].PriceLevel)
}

func TestNearby_ZeroResultsIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	got, err := c.Nearby(context.Background(), NearbyQuery{Radius: 100})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearby_OverQueryLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OVER_QUERY_LIMIT"}`))
	})

	_, err := c.Nearby(context.Background(), NearbyQuery{Radius: 100})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.IsAuth())
	assert.Equal(t, "OVER_QUERY_LIMIT", statusErr.Status)
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "name,rating,price_level", r.URL.Query().Get("fields"))
		switch r.URL.Query().Get("place_id") {
		case "p1":
			w.Write([]byte(`{"status":"OK","result":{"name":"Kin Khao","rating":4.6,"price_level":3}}`))
		default:
			w.Write([]byte(`{"status":"NOT_FOUND"}`))
		}
	})

	d, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Kin Khao", d.Name)
	assert.Equal(t, 4.6, *d.Rating)
	assert.Equal(t, 3, *d.PriceLevel)

	_, err = c.Details(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrZeroResults)
}
