package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/route-engine/internal/domain"
	"gorm.io/gorm"
)

// BatchModel is the persistence model for the batches table.
type BatchModel struct {
	ID                string             `gorm:"type:uuid;primaryKey"`
	DeliveryDate      time.Time          `gorm:"type:date;not null"`
	Status            domain.BatchStatus `gorm:"type:varchar(20);not null"`
	WindowStart       *string            `gorm:"type:varchar(5)"`
	WindowEnd         *string            `gorm:"type:varchar(5)"`
	OrderIDs          []string           `gorm:"type:jsonb;serializer:json;not null"`
	RouteIDs          []string           `gorm:"type:jsonb;serializer:json;not null"`
	LockedAt          *time.Time         `gorm:"type:timestamptz"`
	RoutesGeneratedAt *time.Time         `gorm:"type:timestamptz"`
	CompletedAt       *time.Time         `gorm:"type:timestamptz"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (BatchModel) TableName() string {
	return "batches"
}

// OrderModel is the routing view of the orders table. The engine never writes it.
type OrderModel struct {
	ID        string   `gorm:"type:varchar(64);primaryKey"`
	Latitude  *float64 `gorm:"column:lat;type:double precision"`
	Longitude *float64 `gorm:"column:lng;type:double precision"`
	Postcode  string   `gorm:"type:varchar(16);not null;default:''"`
	Line1     string   `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// DriverModel is the persistence model for the driver directory.
type DriverModel struct {
	ID        string   `gorm:"type:varchar(64);primaryKey"`
	Name      string   `gorm:"type:varchar(255);not null"`
	Active    bool     `gorm:"not null;default:true"`
	Roles     []string `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DriverModel) TableName() string {
	return "drivers"
}

// RouteModel is the persistence model for the routes table.
type RouteModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	BatchID         string  `gorm:"type:uuid;not null"`
	DriverID        string  `gorm:"type:varchar(64);not null"`
	Position        int     `gorm:"not null"`
	StopCount       int     `gorm:"not null"`
	DistanceMeters  int64   `gorm:"not null;default:0"`
	DurationSeconds int64   `gorm:"not null;default:0"`
	Polyline        *string `gorm:"type:text"`
	Fallback        bool    `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RouteModel) TableName() string {
	return "routes"
}

// StopModel is the persistence model for the stops table.
type StopModel struct {
	ID               string            `gorm:"type:uuid;primaryKey"`
	RouteID          string            `gorm:"type:uuid;not null"`
	BatchID          string            `gorm:"type:uuid;not null"`
	OrderID          string            `gorm:"type:varchar(64);not null"`
	Sequence         int               `gorm:"not null"`
	EstimatedArrival time.Time         `gorm:"type:timestamptz;not null"`
	Status           domain.StopStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (StopModel) TableName() string {
	return "stops"
}

func batchModelToDomain(m *BatchModel) *domain.Batch {
	if m == nil {
		return nil
	}

	return &domain.Batch{
		ID:                m.ID,
		DeliveryDate:      m.DeliveryDate,
		Status:            m.Status,
		WindowStart:       m.WindowStart,
		WindowEnd:         m.WindowEnd,
		OrderIDs:          m.OrderIDs,
		RouteIDs:          m.RouteIDs,
		LockedAt:          m.LockedAt,
		RoutesGeneratedAt: m.RoutesGeneratedAt,
		CompletedAt:       m.CompletedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) domain.Order {
	return domain.Order{
		ID:       m.ID,
		Lat:      m.Latitude,
		Lng:      m.Longitude,
		Postcode: m.Postcode,
		Line1:    m.Line1,
	}
}

func driverModelToDomain(m *DriverModel) domain.Driver {
	return domain.Driver{
		ID:     m.ID,
		Name:   m.Name,
		Active: m.Active,
		Roles:  m.Roles,
	}
}

func routeModelFromDomain(r *domain.Route) *RouteModel {
	if r == nil {
		return nil
	}

	return &RouteModel{
		ID:              r.ID,
		BatchID:         r.BatchID,
		DriverID:        r.DriverID,
		Position:        r.Position,
		StopCount:       r.StopCount,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Polyline:        r.Polyline,
		Fallback:        r.Fallback,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func routeModelToDomain(m *RouteModel) *domain.Route {
	if m == nil {
		return nil
	}

	return &domain.Route{
		ID:              m.ID,
		BatchID:         m.BatchID,
		DriverID:        m.DriverID,
		Position:        m.Position,
		StopCount:       m.StopCount,
		DistanceMeters:  m.DistanceMeters,
		DurationSeconds: m.DurationSeconds,
		Polyline:        m.Polyline,
		Fallback:        m.Fallback,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func stopModelFromDomain(s *domain.Stop) *StopModel {
	if s == nil {
		return nil
	}

	status := s.Status
	if status == "" {
		status = domain.StopStatusPending
	}

	return &StopModel{
		ID:               s.ID,
		RouteID:          s.RouteID,
		BatchID:          s.BatchID,
		OrderID:          s.OrderID,
		Sequence:         s.Sequence,
		EstimatedArrival: s.EstimatedArrival,
		Status:           status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func stopModelToDomain(m *StopModel) *domain.Stop {
	if m == nil {
		return nil
	}

	return &domain.Stop{
		ID:               m.ID,
		RouteID:          m.RouteID,
		BatchID:          m.BatchID,
		OrderID:          m.OrderID,
		Sequence:         m.Sequence,
		EstimatedArrival: m.EstimatedArrival,
		Status:           m.Status,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// isUUID guards uuid columns; postgres rejects malformed ids with a syntax error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
