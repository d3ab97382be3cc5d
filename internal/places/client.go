// Package places is a thin client for the Google Maps Geocoding, Nearby
// Search and Place Details web services.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bitvote/internal/config"
	"bitvote/internal/geo"
)

// ErrZeroResults is returned when the provider answers ZERO_RESULTS or NOT_FOUND.
var ErrZeroResults = errors.New("places: zero results")

// StatusError is a non-OK answer from the provider.
type StatusError struct {
	Operation  string
	Status     string
	Message    string
	HTTPStatus int
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("places %s: status %s", e.Operation, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsAuth reports whether the provider rejected our credentials.
func (e *StatusError) IsAuth() bool {
	return e.Status == "REQUEST_DENIED" ||
		e.HTTPStatus == http.StatusUnauthorized ||
		e.HTTPStatus == http.StatusForbidden
}

type Place struct {
	ID         string
	Name       string
	Rating     *float64
	PriceLevel *int
	Vicinity   string
	Location   geo.Point
	// DistanceMeters is set only when the provider reports a distance.
	DistanceMeters *float64
}

type Detail struct {
	Name       string
	Rating     *float64
	PriceLevel *int
}

type NearbyQuery struct {
	Location geo.Point
	Radius   int
	Type     string
	Keyword  string
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.MapsConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// --------------------------------------------------
// Geocode resolves a free-text address to coordinates
// --------------------------------------------------
func (c *Client) Geocode(ctx context.Context, address string) (geo.Point, error) {
	params := url.Values{}
	params.Set("address", address)

	var resp struct {
		envelope
		Results []struct {
			Geometry struct {
				Location latLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}

	if err := c.get(ctx, "geocode", "/geocode/json", params, &resp); err != nil {
		return geo.Point{}, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return geo.Point{}, ErrZeroResults
	default:
		return geo.Point{}, &StatusError{Operation: "geocode", Status: resp.Status, Message: resp.ErrorMessage}
	}
	if len(resp.Results) == 0 {
		return geo.Point{}, ErrZeroResults
	}

	loc := resp.Results[0].Geometry.Location
	return geo.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// --------------------------------------------------
// Nearby lists places around a point. ZERO_RESULTS
// is an empty slice, not an error.
// --------------------------------------------------
func (c *Client) Nearby(ctx context.Context, q NearbyQuery) ([]Place, error) {
	params := url.Values{}
	params.Set("location", formatPoint(q.Location))
	params.Set("radius", strconv.Itoa(q.Radius))
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var resp struct {
		envelope
		Results []struct {
			PlaceID    string   `json:"place_id"`
			Name       string   `json:"name"`
			Rating     *float64 `json:"rating"`
			PriceLevel *int     `json:"price_level"`
			Vicinity   string   `json:"vicinity"`
			Distance   *float64 `json:"distance_meters"`
			Geometry   struct {
				Location latLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}

	if err := c.get(ctx, "nearby", "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, &StatusError{Operation: "nearby", Status: resp.Status, Message: resp.ErrorMessage}
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Place{
			ID:             r.PlaceID,
			Name:           r.Name,
			Rating:         r.Rating,
			PriceLevel:     r.PriceLevel,
			Vicinity:       r.Vicinity,
			Location:       geo.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			DistanceMeters: r.Distance,
		})
	}
	return out, nil
}

// --------------------------------------------------
// Details fetches name, rating and price level
// --------------------------------------------------
func (c *Client) Details(ctx context.Context, placeID string) (*Detail, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,rating,price_level")

	var resp struct {
		envelope
		Result *struct {
			Name       string   `json:"name"`
			Rating     *float64 `json:"rating"`
			PriceLevel *int     `json:"price_level"`
		} `json:"result"`
	}

	if err := c.get(ctx, "details", "/place/details/json", params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, ErrZeroResults
	default:
		return nil, &StatusError{Operation: "details", Status: resp.Status, Message: resp.ErrorMessage}
	}
	if resp.Result == nil {
		return nil, ErrZeroResults
	}

	return &Detail{
		Name:       resp.Result.Name,
		Rating:     resp.Result.Rating,
		PriceLevel: resp.Result.PriceLevel,
	}, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("places %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("places %s: read body: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Operation: op, Status: http.StatusText(resp.StatusCode), HTTPStatus: resp.StatusCode}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Status != "" {
			statusErr.Status = env.Status
			statusErr.Message = env.ErrorMessage
		}
		return statusErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("places %s: decode: %w", op, err)
	}
	return nil
}

func formatPoint(p geo.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
