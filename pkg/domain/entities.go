// Package domain defines the persisted entities, the document that holds them,
// and the error taxonomy shared by every layer of the bike rental service.
package domain

// Collection identifies one of the entity sequences stored in the document.
type Collection string

// Supported collections. The values double as the JSON member names.
const (
	// CollectionBikes identifies the bike inventory.
	CollectionBikes Collection = "bikes"
	// CollectionCustomers identifies customer records.
	CollectionCustomers Collection = "customers"
	// CollectionRentals identifies rental transactions.
	CollectionRentals Collection = "rentals"
)

// Singular returns the capitalised entity name used in user-facing messages.
func (c Collection) Singular() string {
	switch c {
	case CollectionBikes:
		return "Bike"
	case CollectionCustomers:
		return "Customer"
	case CollectionRentals:
		return "Rental"
	default:
		return "Entity"
	}
}

// BikeStatus describes whether a bike can be rented.
type BikeStatus string

const (
	// BikeAvailable marks a bike with no active rental.
	BikeAvailable BikeStatus = "available"
	// BikeRented marks a bike referenced by an active rental.
	BikeRented BikeStatus = "rented"
)

// RentalStatus describes the lifecycle stage of a rental.
type RentalStatus string

const (
	// RentalActive is the initial state; the bike is out.
	RentalActive RentalStatus = "active"
	// RentalReturned is terminal; the charge has been computed.
	RentalReturned RentalStatus = "returned"
)

// Bike is an inventory item.
type Bike struct {
	ID         int64      `json:"id"`
	SKU        string     `json:"sku,omitempty"`
	Model      string     `json:"model"`
	Type       string     `json:"type,omitempty"`
	HourlyRate float64    `json:"hourly_rate"`
	Status     BikeStatus `json:"status"`
	Notes      string     `json:"notes,omitempty"`
}

// Customer is a person who rents bikes.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Rental couples a bike with a customer for a period of time. EndTime and
// TotalCharged stay nil while the rental is active.
type Rental struct {
	ID           int64        `json:"id"`
	BikeID       int64        `json:"bike_id"`
	CustomerID   int64        `json:"customer_id"`
	StartTime    string       `json:"start_time"`
	EndTime      *string      `json:"end_time"`
	HourlyRate   float64      `json:"hourly_rate"`
	TotalCharged *float64     `json:"total_charged"`
	Status       RentalStatus `json:"status"`
}

// NextIDs holds the per-collection id counters. Counters only grow.
type NextIDs struct {
	Bikes     int64 `json:"bikes"`
	Customers int64 `json:"customers"`
	Rentals   int64 `json:"rentals"`
}

// Allocate returns the next id for the collection and advances its counter.
func (n *NextIDs) Allocate(c Collection) int64 {
	var counter *int64
	switch c {
	case CollectionBikes:
		counter = &n.Bikes
	case CollectionCustomers:
		counter = &n.Customers
	case CollectionRentals:
		counter = &n.Rentals
	default:
		return 0
	}
	if *counter < 1 {
		*counter = 1
	}
	id := *counter
	*counter++
	return id
}

// Document is the single JSON object holding every collection and counter.
type Document struct {
	Bikes     []Bike     `json:"bikes"`
	Customers []Customer `json:"customers"`
	Rentals   []Rental   `json:"rentals"`
	NextIDs   NextIDs    `json:"nextIds"`
}

// NewDocument returns an empty document with counters starting at 1.
func NewDocument() Document {
	return Document{
		Bikes:     []Bike{},
		Customers: []Customer{},
		Rentals:   []Rental{},
		NextIDs:   NextIDs{Bikes: 1, Customers: 1, Rentals: 1},
	}
}

// Normalize repairs a decoded document: nil collections become empty and
// counters are raised above the largest id present so ids are never reused.
func (d *Document) Normalize() {
	if d.Bikes == nil {
		d.Bikes = []Bike{}
	}
	if d.Customers == nil {
		d.Customers = []Customer{}
	}
	if d.Rentals == nil {
		d.Rentals = []Rental{}
	}
	var maxBike, maxCustomer, maxRental int64
	for _, b := range d.Bikes {
		maxBike = max(maxBike, b.ID)
	}
	for _, c := range d.Customers {
		maxCustomer = max(maxCustomer, c.ID)
	}
	for _, r := range d.Rentals {
		maxRental = max(maxRental, r.ID)
	}
	d.NextIDs.Bikes = max(d.NextIDs.Bikes, maxBike+1, 1)
	d.NextIDs.Customers = max(d.NextIDs.Customers, maxCustomer+1, 1)
	d.NextIDs.Rentals = max(d.NextIDs.Rentals, maxRental+1, 1)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{
		Bikes:     append([]Bike{}, d.Bikes...),
		Customers: append([]Customer{}, d.Customers...),
		Rentals:   make([]Rental, len(d.Rentals)),
		NextIDs:   d.NextIDs,
	}
	for i, r := range d.Rentals {
		out.Rentals[i] = r.Clone()
	}
	return out
}

// Clone returns a copy that shares no pointers with r.
func (r Rental) Clone() Rental {
	cp := r
	if r.EndTime != nil {
		end := *r.EndTime
		cp.EndTime = &end
	}
	if r.TotalCharged != nil {
		total := *r.TotalCharged
		cp.TotalCharged = &total
	}
	return cp
}
