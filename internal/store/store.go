package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evcharging-backend/internal/model"
)

const subscriptionMappingTable = "subscription_charger_mapping"

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	// Transaction runs fn against a Store bound to a single database
	// transaction. Returning an error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CountStations(ctx context.Context) (int64, error)
	ListStations(ctx context.Context, offset, limit int) ([]model.Station, int64, error)
	ListStationsInLatitudeBand(ctx context.Context, minLat, maxLat float64) ([]model.Station, error)
	GetStation(ctx context.Context, id int64) (*model.Station, error)
	CreateStation(ctx context.Context, station *model.Station) error
	CreateStations(ctx context.Context, stations []model.Station) error
	UpdateStation(ctx context.Context, station *model.Station) error
	DeleteStation(ctx context.Context, id int64) error

	GetCharger(ctx context.Context, id int64) (*model.Charger, error)
	ListChargersByStation(ctx context.Context, stationID int64) ([]model.Charger, error)
	CreateCharger(ctx context.Context, charger *model.Charger) error
	UpdateChargerStatus(ctx context.Context, charger *model.Charger, from model.ChargerStatus) error

	GetSession(ctx context.Context, id int64) (*model.ChargingSession, error)
	CreateSession(ctx context.Context, session *model.ChargingSession) error
	CompleteSession(ctx context.Context, session *model.ChargingSession) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.ChargingSession, error)

	CreateMember(ctx context.Context, member *model.Member) error
	GetMemberByEmail(ctx context.Context, email string) (*model.Member, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, chargerIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForCharger(ctx context.Context, chargerID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func orderChargers(db *gorm.DB) *gorm.DB {
	return db.Order("chargers.id")
}

// --- Stations ---

func (s *gormStore) CountStations(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Station{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

func (s *gormStore) ListStations(ctx context.Context, offset, limit int) ([]model.Station, int64, error) {
	total, err := s.CountStations(ctx)
	if err != nil {
		return nil, 0, err
	}

	var stations []model.Station
	if err := s.db.WithContext(ctx).
		Preload("Chargers", orderChargers).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&stations).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, total, nil
}

func (s *gormStore) ListStationsInLatitudeBand(ctx context.Context, minLat, maxLat float64) ([]model.Station, error) {
	var stations []model.Station
	if err := s.db.WithContext(ctx).
		Preload("Chargers", orderChargers).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Order("id").
		Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("failed to list located stations: %w", err)
	}
	return stations, nil
}

func (s *gormStore) GetStation(ctx context.Context, id int64) (*model.Station, error) {
	var station model.Station
	if err := s.db.WithContext(ctx).Preload("Chargers", orderChargers).First(&station, id).Error; err != nil {
		return nil, translate(err)
	}
	return &station, nil
}

func (s *gormStore) CreateStation(ctx context.Context, station *model.Station) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(station).Error; err != nil {
		return translate(err)
	}
	return nil
}

// CreateStations inserts stations together with their chargers.
func (s *gormStore) CreateStations(ctx context.Context, stations []model.Station) error {
	if len(stations) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&stations, 100).Error; err != nil {
			return fmt.Errorf("batch insert stations failed: %w", translate(err))
		}
		return nil
	})
}

func (s *gormStore) UpdateStation(ctx context.Context, station *model.Station) error {
	res := s.db.WithContext(ctx).Model(&model.Station{}).Where("id = ?", station.ID).Updates(map[string]any{
		"name":            station.Name,
		"address":         station.Address,
		"latitude":        station.Latitude,
		"longitude":       station.Longitude,
		"operator_name":   station.OperatorName,
		"contact_number":  station.ContactNumber,
		"operating_hours": station.OperatingHours,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStation removes the station and everything it owns: subscription
// links of its chargers, their sessions, and the chargers themselves.
func (s *gormStore) DeleteStation(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var station model.Station
		if err := tx.Select("id").First(&station, id).Error; err != nil {
			return translate(err)
		}

		var chargerIDs []int64
		if err := tx.Model(&model.Charger{}).Where("station_id = ?", id).Pluck("id", &chargerIDs).Error; err != nil {
			return fmt.Errorf("failed to collect chargers of station %d: %w", id, err)
		}

		if len(chargerIDs) > 0 {
			if err := tx.Exec("DELETE FROM "+subscriptionMappingTable+" WHERE charger_id IN ?", chargerIDs).Error; err != nil {
				return fmt.Errorf("failed to unlink subscriptions of station %d: %w", id, err)
			}
			if err := tx.Where("charger_id IN ?", chargerIDs).Delete(&model.ChargingSession{}).Error; err != nil {
				return fmt.Errorf("failed to delete sessions of station %d: %w", id, err)
			}
			if err := tx.Where("id IN ?", chargerIDs).Delete(&model.Charger{}).Error; err != nil {
				return fmt.Errorf("failed to delete chargers of station %d: %w", id, err)
			}
		}

		if err := tx.Delete(&model.Station{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete station %d: %w", id, err)
		}
		return nil
	})
}

// --- Chargers ---

func (s *gormStore) GetCharger(ctx context.Context, id int64) (*model.Charger, error) {
	var charger model.Charger
	if err := s.db.WithContext(ctx).First(&charger, id).Error; err != nil {
		return nil, translate(err)
	}
	return &charger, nil
}

func (s *gormStore) ListChargersByStation(ctx context.Context, stationID int64) ([]model.Charger, error) {
	var chargers []model.Charger
	if err := s.db.WithContext(ctx).Where("station_id = ?", stationID).Order("id").Find(&chargers).Error; err != nil {
		return nil, fmt.Errorf("failed to list chargers of station %d: %w", stationID, err)
	}
	return chargers, nil
}

func (s *gormStore) CreateCharger(ctx context.Context, charger *model.Charger) error {
	if err := s.db.WithContext(ctx).Create(charger).Error; err != nil {
		return translate(err)
	}
	return nil
}

// UpdateChargerStatus writes the charger's status only if the row still holds
// from. A miss means another request changed it first and yields ErrStaleWrite.
func (s *gormStore) UpdateChargerStatus(ctx context.Context, charger *model.Charger, from model.ChargerStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Charger{}).
		Where("id = ? AND status = ?", charger.ID, from).
		Updates(map[string]any{
			"status":                 charger.Status,
			"last_status_changed_at": charger.LastStatusChangedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update status of charger %d: %w", charger.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// --- Sessions ---

func (s *gormStore) GetSession(ctx context.Context, id int64) (*model.ChargingSession, error) {
	var session model.ChargingSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *gormStore) CreateSession(ctx context.Context, session *model.ChargingSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session for charger %d: %w", session.ChargerID, err)
	}
	return nil
}

// CompleteSession persists a completed session, guarded on the row still
// being IN_PROGRESS.
func (s *gormStore) CompleteSession(ctx context.Context, session *model.ChargingSession) error {
	res := s.db.WithContext(ctx).Model(&model.ChargingSession{}).
		Where("id = ? AND status = ?", session.ID, model.SessionStatusInProgress).
		Updates(map[string]any{
			"end_time":             session.EndTime,
			"energy_delivered_kwh": session.EnergyDeliveredKwh,
			"cost":                 session.Cost,
			"status":               session.Status,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete session %d: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (s *gormStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.ChargingSession, error) {
	q := s.db.WithContext(ctx).Where("charger_id = ?", filter.ChargerID)
	if filter.From != nil && filter.To != nil {
		q = q.Where("start_time BETWEEN ? AND ?", filter.From.UTC(), filter.To.UTC())
	}

	var sessions []model.ChargingSession
	if err := q.Order("id").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions of charger %d: %w", filter.ChargerID, err)
	}
	return sessions, nil
}

// --- Members ---

func (s *gormStore) CreateMember(ctx context.Context, member *model.Member) error {
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *gormStore) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	var member model.Member
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

// --- Push subscriptions ---

// PutSubscription creates or replaces a subscription and the chargers it watches.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, chargerIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		chargers := make([]*model.Charger, 0, len(chargerIDs))
		if len(chargerIDs) > 0 {
			if err := tx.Find(&chargers, chargerIDs).Error; err != nil {
				return fmt.Errorf("failed to load subscribed chargers: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Chargers").Replace(chargers); err != nil {
			return fmt.Errorf("failed to replace subscribed chargers: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Chargers").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+subscriptionMappingTable+" WHERE push_subscription_endpoint = ?", endpoint).Error; err != nil {
			return fmt.Errorf("failed to unlink subscription: %w", err)
		}
		res := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *gormStore) SubscriptionsForCharger(ctx context.Context, chargerID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN "+subscriptionMappingTable+" scm ON scm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("scm.charger_id = ?", chargerID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for charger %d: %w", chargerID, err)
	}
	return subs, nil
}
