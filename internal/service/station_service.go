package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/geo"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// StationInput carries the writable fields of a station. Code is only used on
// creation.
type StationInput struct {
	Code           *string
	Name           string
	Address        string
	Latitude       *float64
	Longitude      *float64
	OperatorName   string
	ContactNumber  string
	OperatingHours string
}

// StationPage is one page of stations ordered by id.
type StationPage struct {
	Stations      []model.Station
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// NearbyStation is a station with its distance from the query point.
type NearbyStation struct {
	model.Station
	DistanceKm float64
}

// StationService manages stations.
type StationService struct {
	store  store.Store
	logger *zap.Logger
}

// NewStationService builds a StationService.
func NewStationService(s store.Store, logger *zap.Logger) *StationService {
	return &StationService{store: s, logger: logger}
}

// List returns the requested page. page is zero-based; size is clamped to
// [1, MaxPageSize] with DefaultPageSize for zero.
func (s *StationService) List(ctx context.Context, page, size int) (*StationPage, error) {
	if page < 0 {
		return nil, apperr.Validation("page: must not be negative")
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 0:
		return nil, apperr.Validation("size: must be positive")
	case size > MaxPageSize:
		size = MaxPageSize
	}
	if page > math.MaxInt/size {
		return nil, apperr.Validation("page: is too large")
	}

	stations, total, err := s.store.ListStations(ctx, page*size, size)
	if err != nil {
		return nil, err
	}
	return &StationPage{
		Stations:      stations,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// Get returns one station with its chargers.
func (s *StationService) Get(ctx context.Context, id int64) (*model.Station, error) {
	station, err := s.store.GetStation(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.ErrStationNotFound)
	}
	return station, nil
}

// Nearby returns stations strictly closer than radiusKm, nearest first.
func (s *StationService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyStation, error) {
	var v violations
	checkCoordinates(&v, lat, lng)
	if !(radiusKm > 0) || math.IsInf(radiusKm, 1) {
		v.add("radius", "must be a positive finite number")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	minLat, maxLat := geo.LatitudeBand(lat, radiusKm)
	candidates, err := s.store.ListStationsInLatitudeBand(ctx, minLat, maxLat)
	if err != nil {
		return nil, err
	}

	result := make([]NearbyStation, 0, len(candidates))
	for _, st := range candidates {
		if !st.HasLocation() {
			continue
		}
		d := geo.DistanceKm(lat, lng, *st.Latitude, *st.Longitude)
		if d < radiusKm {
			result = append(result, NearbyStation{Station: st, DistanceKm: d})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].DistanceKm < result[j].DistanceKm })
	return result, nil
}

// Create stores a new station.
func (s *StationService) Create(ctx context.Context, in StationInput) (*model.Station, error) {
	if err := validateStation(in); err != nil {
		return nil, err
	}

	station := &model.Station{
		Code:           in.Code,
		Name:           in.Name,
		Address:        in.Address,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		OperatorName:   in.OperatorName,
		ContactNumber:  in.ContactNumber,
		OperatingHours: in.OperatingHours,
	}
	if err := s.store.CreateStation(ctx, station); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrDuplicateStationCode
		}
		return nil, fmt.Errorf("create station: %w", err)
	}
	station.Chargers = []model.Charger{}

	s.logger.Info("station created", zap.Int64("station_id", station.ID), zap.String("name", station.Name))
	return station, nil
}

// Update overwrites the mutable fields of a station. The code never changes.
func (s *StationService) Update(ctx context.Context, id int64, in StationInput) (*model.Station, error) {
	if err := validateStation(in); err != nil {
		return nil, err
	}

	var updated *model.Station
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		station := &model.Station{
			ID:             id,
			Name:           in.Name,
			Address:        in.Address,
			Latitude:       in.Latitude,
			Longitude:      in.Longitude,
			OperatorName:   in.OperatorName,
			ContactNumber:  in.ContactNumber,
			OperatingHours: in.OperatingHours,
		}
		if err := tx.UpdateStation(ctx, station); err != nil {
			return notFound(err, apperr.ErrStationNotFound)
		}

		var err error
		updated, err = tx.GetStation(ctx, id)
		return notFound(err, apperr.ErrStationNotFound)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a station and, through it, its chargers and their sessions.
func (s *StationService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteStation(ctx, id); err != nil {
		return notFound(err, apperr.ErrStationNotFound)
	}
	s.logger.Info("station deleted", zap.Int64("station_id", id))
	return nil
}

func validateStation(in StationInput) error {
	var v violations
	if in.Name == "" {
		v.add("name", "must not be blank")
	}
	if in.Address == "" {
		v.add("address", "must not be blank")
	}
	if in.Code != nil && *in.Code == "" {
		v.add("stationCode", "must not be blank when present")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		v.add("latitude", "latitude and longitude must be given together")
	}
	if in.Latitude != nil && in.Longitude != nil {
		checkCoordinates(&v, *in.Latitude, *in.Longitude)
	}
	return v.err()
}

func checkCoordinates(v *violations, lat, lng float64) {
	// Negated ranges also reject NaN.
	if !(lat >= -90 && lat <= 90) {
		v.add("latitude", "must be between -90 and 90")
	}
	if !(lng >= -180 && lng <= 180) {
		v.add("longitude", "must be between -180 and 180")
	}
}
