package routing

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
)

const (
	minServiceDuration      = 60 * time.Second
	serviceDurationPerOrder = 300 * time.Second
)

type BuildInput struct {
	Groups  []VisitGroup
	Drivers []domain.Driver
	Depot   domain.Location
	Window  Window
}

// BuildRequest emits one shipment per visit group and one depot-based vehicle
// per driver. Vehicle capacity is ceil(orders/drivers), a balancing hint only.
func BuildRequest(in BuildInput) (*optimizer.Request, error) {
	if len(in.Groups) == 0 {
		return nil, fmt.Errorf("%w: batch has no orders to route", domain.ErrValidation)
	}
	if len(in.Drivers) == 0 {
		return nil, fmt.Errorf("%w: no eligible drivers", domain.ErrValidation)
	}
	if !in.Window.End.After(in.Window.Start) {
		return nil, fmt.Errorf("%w: delivery window end must be after start", domain.ErrValidation)
	}

	totalOrders := 0
	shipments := make([]optimizer.Shipment, 0, len(in.Groups))
	for _, g := range in.Groups {
		totalOrders += g.OrderCount()
		shipments = append(shipments, optimizer.Shipment{
			Location:        optimizer.LatLng{Latitude: g.Lat, Longitude: g.Lng},
			ServiceDuration: optimizer.FormatDuration(ServiceDuration(g.OrderCount())),
			LoadDemand:      g.OrderCount(),
		})
	}

	capacity := VehicleCapacity(totalOrders, len(in.Drivers))
	depot := optimizer.LatLng{Latitude: in.Depot.Lat, Longitude: in.Depot.Lng}
	vehicles := make([]optimizer.Vehicle, 0, len(in.Drivers))
	for _, d := range in.Drivers {
		vehicles = append(vehicles, optimizer.Vehicle{
			StartLocation: depot,
			EndLocation:   depot,
			Label:         d.ID,
			LoadCapacity:  capacity,
		})
	}

	return &optimizer.Request{
		GlobalStartTime: in.Window.Start.UTC(),
		GlobalEndTime:   in.Window.End.UTC(),
		Shipments:       shipments,
		Vehicles:        vehicles,
	}, nil
}

// ServiceDuration is the time spent at a visit serving orderCount orders.
func ServiceDuration(orderCount int) time.Duration {
	return max(minServiceDuration, serviceDurationPerOrder*time.Duration(orderCount))
}

func VehicleCapacity(totalOrders, driverCount int) int {
	if driverCount <= 0 {
		return totalOrders
	}
	return (totalOrders + driverCount - 1) / driverCount
}
