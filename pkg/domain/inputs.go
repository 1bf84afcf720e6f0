package domain

// Create inputs carry `validate` tags; `required` rejects absent numbers and
// empty strings, which is what "missing" means for every create operation.

// NewBike is the payload accepted when adding a bike to the inventory.
type NewBike struct {
	SKU        string   `json:"sku" validate:"required"`
	Model      string   `json:"model" validate:"required"`
	Type       string   `json:"type"`
	HourlyRate *float64 `json:"hourly_rate" validate:"required,gte=0"`
	Notes      string   `json:"notes"`
}

// Build returns the bike described by the input. New bikes are always available.
func (in NewBike) Build() Bike {
	b := Bike{SKU: in.SKU, Model: in.Model, Type: in.Type, Status: BikeAvailable, Notes: in.Notes}
	if in.HourlyRate != nil {
		b.HourlyRate = *in.HourlyRate
	}
	return b
}

// NewCustomer is the payload accepted when registering a customer.
type NewCustomer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Build returns the customer described by the input.
func (in NewCustomer) Build() Customer {
	return Customer{Name: in.Name, Email: in.Email, Phone: in.Phone}
}

// NewRental is the payload accepted when a bike is rented out.
type NewRental struct {
	BikeID     *int64   `json:"bike_id" validate:"required"`
	CustomerID *int64   `json:"customer_id" validate:"required"`
	StartTime  string   `json:"start_time" validate:"required"`
	HourlyRate *float64 `json:"hourly_rate" validate:"required,gte=0"`
}

// ReturnRental is the payload accepted when a bike comes back.
type ReturnRental struct {
	EndTime string `json:"end_time" validate:"required"`
}

// Patch merges a partial update into an existing entity. Nil fields retain
// the current value.
type Patch[T any] interface {
	Apply(T) T
}

// BikePatch lists every patchable bike field. Id and status are excluded: the
// status is owned by the rental lifecycle.
type BikePatch struct {
	SKU        *string  `json:"sku" validate:"omitnil,min=1"`
	Model      *string  `json:"model" validate:"omitnil,min=1"`
	Type       *string  `json:"type"`
	HourlyRate *float64 `json:"hourly_rate" validate:"omitnil,gte=0"`
	Notes      *string  `json:"notes"`
}

// Apply implements Patch.
func (p BikePatch) Apply(b Bike) Bike {
	if p.SKU != nil {
		b.SKU = *p.SKU
	}
	if p.Model != nil {
		b.Model = *p.Model
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.HourlyRate != nil {
		b.HourlyRate = *p.HourlyRate
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	return b
}

// CustomerPatch lists every patchable customer field.
type CustomerPatch struct {
	Name  *string `json:"name" validate:"omitnil,min=1"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Apply implements Patch.
func (p CustomerPatch) Apply(c Customer) Customer {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	return c
}
