// Package core implements the rental lifecycle on top of the typed
// repositories: bike and customer management, renting, returning and billing.
package core

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"bikerental/internal/repository"
	"bikerental/internal/validation"
	"bikerental/pkg/domain"
)

// SortHourlyRate orders bikes by ascending hourly rate.
const SortHourlyRate = "hourly_rate"

// BikeFilter narrows ListBikes results.
type BikeFilter struct {
	// Query matches model or sku, case-insensitively.
	Query         string
	AvailableOnly bool
	Sort          string
}

type (
	bikeRepo     = repository.Repository[domain.Bike, domain.BikePatch]
	customerRepo = repository.Repository[domain.Customer, domain.CustomerPatch]
	rentalRepo   = repository.Repository[domain.Rental, repository.Immutable[domain.Rental]]
)

var (
	uniqueSKU   = repository.Unique(repository.Bikes, func(b domain.Bike) string { return b.SKU }, "SKU already exists")
	uniqueEmail = repository.Unique(repository.Customers, func(c domain.Customer) string { return c.Email }, "Email already exists")
)

// Service exposes the bike rental operations.
type Service struct {
	store     repository.DocumentStore
	bikes     *bikeRepo
	customers *customerRepo
	rentals   *rentalRepo
	logger    Logger
	metrics   MetricsRecorder
	clock     Clock
}

// NewService constructs a service backed by the supplied document store.
func NewService(store repository.DocumentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:     store,
		bikes:     repository.New[domain.Bike, domain.BikePatch](store, repository.Bikes),
		customers: repository.New[domain.Customer, domain.CustomerPatch](store, repository.Customers),
		rentals:   repository.New[domain.Rental, repository.Immutable[domain.Rental]](store, repository.Rentals),
		logger:    o.logger,
		metrics:   o.metrics,
		clock:     o.clock,
	}
}

// run times fn and reports its outcome to the metrics recorder and logger.
func (s *Service) run(ctx context.Context, op string, fn func() error) error {
	started := s.clock.Now()
	err := fn()
	elapsed := s.clock.Now().Sub(started)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	var se domain.StorageError
	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "duration", elapsed)
	case errors.As(err, &se):
		s.logger.Error("operation failed", "operation", op, "error", err)
	default:
		s.logger.Debug("operation rejected", "operation", op, "error", err)
	}
	return err
}

// CreateBike adds a bike to the inventory. New bikes are available.
func (s *Service) CreateBike(ctx context.Context, in domain.NewBike) (domain.Bike, error) {
	var created domain.Bike
	err := s.run(ctx, "bikes.create", func() error {
		var err error
		created, err = s.bikes.Create(ctx, in, uniqueSKU)
		return err
	})
	return created, err
}

// ListBikes returns bikes matching filter, in document order unless sorted.
func (s *Service) ListBikes(ctx context.Context, filter BikeFilter) ([]domain.Bike, error) {
	var out []domain.Bike
	err := s.run(ctx, "bikes.list", func() error {
		bikes, err := s.bikes.List(ctx)
		if err != nil {
			return err
		}
		out = filterBikes(bikes, filter)
		return nil
	})
	return out, err
}

func filterBikes(bikes []domain.Bike, filter BikeFilter) []domain.Bike {
	q := strings.ToLower(filter.Query)
	out := make([]domain.Bike, 0, len(bikes))
	for _, b := range bikes {
		if q != "" && !strings.Contains(strings.ToLower(b.Model), q) && !strings.Contains(strings.ToLower(b.SKU), q) {
			continue
		}
		if filter.AvailableOnly && b.Status != domain.BikeAvailable {
			continue
		}
		out = append(out, b)
	}
	if filter.Sort == SortHourlyRate {
		slices.SortStableFunc(out, func(a, b domain.Bike) int { return cmp.Compare(a.HourlyRate, b.HourlyRate) })
	}
	return out
}

// GetBike fetches one bike.
func (s *Service) GetBike(ctx context.Context, id int64) (domain.Bike, error) {
	var bike domain.Bike
	err := s.run(ctx, "bikes.get", func() error {
		b, found, err := s.bikes.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFoundError{Entity: domain.CollectionBikes, ID: id}
		}
		bike = b
		return nil
	})
	return bike, err
}

// UpdateBike merges patch into the bike. A changed sku must stay unique.
func (s *Service) UpdateBike(ctx context.Context, id int64, patch domain.BikePatch) (domain.Bike, error) {
	var updated domain.Bike
	err := s.run(ctx, "bikes.update", func() error {
		var err error
		updated, err = s.bikes.Update(ctx, id, patch, uniqueSKU)
		return err
	})
	return updated, err
}

// DeleteBike removes a bike and returns it. Rentals referencing the bike are
// kept; returning them later leaves no bike to free.
func (s *Service) DeleteBike(ctx context.Context, id int64) (domain.Bike, error) {
	var removed domain.Bike
	err := s.run(ctx, "bikes.delete", func() error {
		var err error
		removed, err = s.bikes.Delete(ctx, id)
		return err
	})
	return removed, err
}

// CreateCustomer registers a customer. A non-empty email must be unique.
func (s *Service) CreateCustomer(ctx context.Context, in domain.NewCustomer) (domain.Customer, error) {
	var created domain.Customer
	err := s.run(ctx, "customers.create", func() error {
		var err error
		created, err = s.customers.Create(ctx, in, uniqueEmail)
		return err
	})
	return created, err
}

// ListCustomers returns every customer.
func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	err := s.run(ctx, "customers.list", func() error {
		var err error
		out, err = s.customers.List(ctx)
		return err
	})
	return out, err
}

// GetCustomer fetches one customer.
func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var customer domain.Customer
	err := s.run(ctx, "customers.get", func() error {
		c, found, err := s.customers.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFoundError{Entity: domain.CollectionCustomers, ID: id}
		}
		customer = c
		return nil
	})
	return customer, err
}

// UpdateCustomer merges patch into the customer. A changed email must stay unique.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (domain.Customer, error) {
	var updated domain.Customer
	err := s.run(ctx, "customers.update", func() error {
		var err error
		updated, err = s.customers.Update(ctx, id, patch, uniqueEmail)
		return err
	})
	return updated, err
}

// ListRentals returns every rental.
func (s *Service) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	var out []domain.Rental
	err := s.run(ctx, "rentals.list", func() error {
		var err error
		out, err = s.rentals.List(ctx)
		return err
	})
	return out, err
}

// GetRental fetches one rental.
func (s *Service) GetRental(ctx context.Context, id int64) (domain.Rental, error) {
	var rental domain.Rental
	err := s.run(ctx, "rentals.get", func() error {
		r, found, err := s.rentals.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFoundError{Entity: domain.CollectionRentals, ID: id}
		}
		rental = r
		return nil
	})
	return rental, err
}

// CreateRental rents an available bike to an existing customer. The rental
// and the bike status change are written together.
func (s *Service) CreateRental(ctx context.Context, in domain.NewRental) (domain.Rental, error) {
	var created domain.Rental
	err := s.run(ctx, "rentals.create", func() error {
		if err := validation.Struct(in); err != nil {
			return err
		}
		if _, ok := ParseTimestamp(in.StartTime); !ok {
			return domain.ValidationError{Message: "Invalid start_time", Fields: []string{"start_time"}}
		}
		bikeID, customerID := *in.BikeID, *in.CustomerID
		return s.store.Update(ctx, func(doc *domain.Document) error {
			bike, bikeIdx, found := s.bikes.Find(doc, bikeID)
			if !found {
				return domain.NotFoundError{Entity: domain.CollectionBikes, ID: bikeID}
			}
			if bike.Status != domain.BikeAvailable {
				return domain.ConflictError{Message: "Bike not available"}
			}
			if _, _, found := s.customers.Find(doc, customerID); !found {
				return domain.NotFoundError{Entity: domain.CollectionCustomers, ID: customerID}
			}
			created = s.rentals.Insert(doc, domain.Rental{
				BikeID:     bikeID,
				CustomerID: customerID,
				StartTime:  in.StartTime,
				HourlyRate: *in.HourlyRate,
				Status:     domain.RentalActive,
			})
			bike.Status = domain.BikeRented
			s.bikes.Replace(doc, bikeIdx, bike)
			return nil
		})
	})
	if err != nil {
		return domain.Rental{}, err
	}
	return created, nil
}

// ReturnRental closes an active rental, computes its charge and frees the bike.
func (s *Service) ReturnRental(ctx context.Context, id int64, in domain.ReturnRental) (domain.Rental, error) {
	var returned domain.Rental
	var charged float64
	err := s.run(ctx, "rentals.return", func() error {
		if strings.TrimSpace(in.EndTime) == "" {
			return domain.ValidationError{Message: "end_time required", Fields: []string{"end_time"}}
		}
		end, ok := ParseTimestamp(in.EndTime)
		if !ok {
			return domain.ValidationError{Message: "Invalid end_time", Fields: []string{"end_time"}}
		}
		return s.store.Update(ctx, func(doc *domain.Document) error {
			rental, idx, found := s.rentals.Find(doc, id)
			if !found {
				return domain.NotFoundError{Entity: domain.CollectionRentals, ID: id}
			}
			if rental.Status != domain.RentalActive {
				return domain.ConflictError{Message: "Rental not active"}
			}
			start, ok := ParseTimestamp(rental.StartTime)
			if !ok {
				return domain.ValidationError{Message: "Invalid start_time", Fields: []string{"start_time"}}
			}
			if end.Before(start) {
				return domain.ValidationError{Message: "end_time before start_time", Fields: []string{"end_time"}}
			}
			charged = Charge(start, end, rental.HourlyRate)
			endTime := in.EndTime
			rental.EndTime = &endTime
			rental.TotalCharged = &charged
			rental.Status = domain.RentalReturned
			s.rentals.Replace(doc, idx, rental)
			s.releaseBike(doc, rental.BikeID)
			returned = rental
			return nil
		})
	})
	if err != nil {
		return domain.Rental{}, err
	}
	if cr, ok := s.metrics.(ChargeRecorder); ok {
		cr.ObserveCharge(charged)
	}
	return returned, nil
}

// DeleteRental removes a rental in any state. Deleting an active rental frees
// its bike.
func (s *Service) DeleteRental(ctx context.Context, id int64) (domain.Rental, error) {
	var removed domain.Rental
	err := s.run(ctx, "rentals.delete", func() error {
		return s.store.Update(ctx, func(doc *domain.Document) error {
			rental, found := s.rentals.Remove(doc, id)
			if !found {
				return domain.NotFoundError{Entity: domain.CollectionRentals, ID: id}
			}
			if rental.Status == domain.RentalActive {
				s.releaseBike(doc, rental.BikeID)
			}
			removed = rental
			return nil
		})
	})
	if err != nil {
		return domain.Rental{}, err
	}
	return removed, nil
}

// releaseBike marks the bike available if it still exists.
func (s *Service) releaseBike(doc *domain.Document, bikeID int64) {
	bike, idx, found := s.bikes.Find(doc, bikeID)
	if !found {
		return
	}
	bike.Status = domain.BikeAvailable
	s.bikes.Replace(doc, idx, bike)
}
