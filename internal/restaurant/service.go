package restaurant

import (
	"context"
	"errors"
	"math"
	"sort"

	"bitvote/internal/apperror"
	"bitvote/internal/config"
	"bitvote/internal/geo"
	"bitvote/internal/metrics"
	"bitvote/internal/places"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Places is the subset of the maps provider the pipeline needs.
type Places interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	Nearby(ctx context.Context, q places.NearbyQuery) ([]places.Place, error)
	Details(ctx context.Context, placeID string) (*places.Detail, error)
}

type Service struct {
	places            Places
	log               *zap.Logger
	metrics           *metrics.Metrics
	maxResults        int
	detailConcurrency int
}

func NewService(p Places, search config.SearchConfig, maps config.MapsConfig, log *zap.Logger, m *metrics.Metrics) *Service {
	maxResults := search.MaxResults
	if maxResults <= 0 || maxResults > config.MaxSearchResults {
		maxResults = config.MaxSearchResults
	}
	concurrency := maps.DetailConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{
		places:            p,
		log:               log.Named("restaurant"),
		metrics:           m,
		maxResults:        maxResults,
		detailConcurrency: concurrency,
	}
}

// --------------------------------------------------
// Search runs the ranking pipeline
// --------------------------------------------------
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	origin, err := s.resolve(ctx, q)
	if err != nil {
		s.metrics.Search("error")
		return nil, err
	}

	nearby, err := s.places.Nearby(ctx, places.NearbyQuery{
		Location: origin,
		Radius:   q.Radius,
		Type:     "restaurant",
		Keyword:  q.Cuisine,
	})
	if err != nil {
		s.metrics.Search("error")
		return nil, upstreamError(err, "PLACES_FAILURE", "failed to search nearby restaurants")
	}
	if len(nearby) == 0 {
		s.metrics.Search("empty")
		return nil, ErrNoResultsFound
	}

	candidates := s.enrich(ctx, origin, nearby)
	if len(candidates) == 0 {
		s.metrics.Search("empty")
		return nil, ErrNoDetailsAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := ratingOrZero(candidates[i].Rating), ratingOrZero(candidates[j].Rating)
		if ri != rj {
			return ri > rj
		}
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})

	if len(candidates) > s.maxResults {
		candidates = candidates[:s.maxResults]
	}

	s.metrics.Search("ok")
	return candidates, nil
}

func (s *Service) resolve(ctx context.Context, q SearchQuery) (geo.Point, error) {
	hasAddress := q.Address != ""
	hasCoords := q.Coordinates != nil

	if hasAddress == hasCoords {
		return geo.Point{}, ErrMissingLocation
	}

	if hasCoords {
		if !q.Coordinates.Valid() {
			return geo.Point{}, ErrInvalidCoordinates
		}
		return *q.Coordinates, nil
	}

	p, err := s.places.Geocode(ctx, q.Address)
	if errors.Is(err, places.ErrZeroResults) {
		return geo.Point{}, ErrLocationNotFound
	}
	if err != nil {
		return geo.Point{}, upstreamError(err, "GEOCODE_FAILURE", "failed to geocode location")
	}
	return p, nil
}

// enrich fetches details for every candidate through a bounded fan-out.
// Each lookup writes only its own slot, so completion order does not matter.
// A failed lookup drops its candidate.
func (s *Service) enrich(ctx context.Context, origin geo.Point, nearby []places.Place) []Candidate {
	slots := make([]*Candidate, len(nearby))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.detailConcurrency)

	for i := range nearby {
		p := nearby[i]
		g.Go(func() error {
			detail, err := s.places.Details(gctx, p.ID)
			if err != nil || detail == nil {
				s.log.Warn("dropping candidate without details",
					zap.String("place_id", p.ID),
					zap.Error(err),
				)
				s.metrics.EnrichmentFailed()
				return nil
			}
			c := merge(origin, p, detail)
			slots[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func merge(origin geo.Point, p places.Place, d *places.Detail) Candidate {
	name := d.Name
	if name == "" {
		name = p.Name
	}
	rating := d.Rating
	if rating == nil {
		rating = p.Rating
	}
	level := d.PriceLevel
	if level == nil {
		level = p.PriceLevel
	}

	var distance float64
	if p.DistanceMeters != nil {
		distance = *p.DistanceMeters
	} else {
		distance = geo.Haversine(origin, p.Location)
	}

	return Candidate{
		ID:             p.ID,
		Name:           name,
		Rating:         rating,
		PriceLevel:     level,
		PriceRange:     PriceRange(level),
		DistanceMeters: math.Round(distance),
		Vicinity:       p.Vicinity,
	}
}

func upstreamError(err error, code, message string) error {
	var statusErr *places.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.IsAuth() {
			return apperror.Wrap(err, apperror.KindAuthFailure, "AUTH_FAILURE",
				"maps provider rejected the request").WithDetails(statusErr.Status)
		}
		return apperror.Wrap(err, apperror.KindUpstream, code, message).WithDetails(statusErr.Status)
	}
	return apperror.Wrap(err, apperror.KindUpstream, code, message)
}
