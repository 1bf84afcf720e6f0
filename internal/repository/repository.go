// Package repository provides typed CRUD over one collection of the rental
// document. Every call is a full read-modify-write cycle against the store.
package repository

import (
	"context"

	"bikerental/internal/validation"
	"bikerental/pkg/domain"
)

// DocumentStore is the subset of store.Store the repository needs.
type DocumentStore interface {
	Read(ctx context.Context) (domain.Document, error)
	Update(ctx context.Context, fn func(*domain.Document) error) error
}

// Input is a validated create payload that builds a new entity.
type Input[T any] interface {
	Build() T
}

// Guard checks a candidate entity against the current collection before it
// is written. Guards run inside the same cycle as the write.
type Guard[T any] func(existing []T, candidate T) error

// Collection binds an entity type to its document member.
type Collection[T any] struct {
	Name  domain.Collection
	Items func(*domain.Document) *[]T
	ID    func(T) int64
	SetID func(*T, int64)
}

// Bikes is the bike inventory collection.
var Bikes = Collection[domain.Bike]{
	Name:  domain.CollectionBikes,
	Items: func(d *domain.Document) *[]domain.Bike { return &d.Bikes },
	ID:    func(b domain.Bike) int64 { return b.ID },
	SetID: func(b *domain.Bike, id int64) { b.ID = id },
}

// Customers is the customer collection.
var Customers = Collection[domain.Customer]{
	Name:  domain.CollectionCustomers,
	Items: func(d *domain.Document) *[]domain.Customer { return &d.Customers },
	ID:    func(c domain.Customer) int64 { return c.ID },
	SetID: func(c *domain.Customer, id int64) { c.ID = id },
}

// Rentals is the rental collection.
var Rentals = Collection[domain.Rental]{
	Name:  domain.CollectionRentals,
	Items: func(d *domain.Document) *[]domain.Rental { return &d.Rentals },
	ID:    func(r domain.Rental) int64 { return r.ID },
	SetID: func(r *domain.Rental, id int64) { r.ID = id },
}

// Repository is generic CRUD for entities T patched by P.
type Repository[T any, P domain.Patch[T]] struct {
	store DocumentStore
	coll  Collection[T]
}

// New binds a repository to a collection.
func New[T any, P domain.Patch[T]](store DocumentStore, coll Collection[T]) *Repository[T, P] {
	return &Repository[T, P]{store: store, coll: coll}
}

// Collection returns the collection the repository is bound to.
func (r *Repository[T, P]) Collection() Collection[T] { return r.coll }

// Create validates in, runs guards, assigns the next id and appends the entity.
func (r *Repository[T, P]) Create(ctx context.Context, in Input[T], guards ...Guard[T]) (T, error) {
	var created T
	if err := validation.Struct(in); err != nil {
		return created, err
	}
	candidate := in.Build()
	err := r.store.Update(ctx, func(doc *domain.Document) error {
		if err := runGuards(*r.coll.Items(doc), candidate, guards); err != nil {
			return err
		}
		created = r.Insert(doc, candidate)
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// List returns a copy of the whole collection.
func (r *Repository[T, P]) List(ctx context.Context) ([]T, error) {
	doc, err := r.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	items := *r.coll.Items(&doc)
	return append(make([]T, 0, len(items)), items...), nil
}

// Get looks up one entity. A missing entity is reported through found, not
// as an error.
func (r *Repository[T, P]) Get(ctx context.Context, id int64) (T, bool, error) {
	doc, err := r.store.Read(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	entity, _, found := r.Find(&doc, id)
	return entity, found, nil
}

// Update merges patch into the entity with id. Guards see the merged entity.
func (r *Repository[T, P]) Update(ctx context.Context, id int64, patch P, guards ...Guard[T]) (T, error) {
	var updated T
	if err := validation.Struct(patch); err != nil {
		return updated, err
	}
	err := r.store.Update(ctx, func(doc *domain.Document) error {
		current, idx, found := r.Find(doc, id)
		if !found {
			return domain.NotFoundError{Entity: r.coll.Name, ID: id}
		}
		merged := patch.Apply(current)
		r.coll.SetID(&merged, id)
		if err := runGuards(*r.coll.Items(doc), merged, guards); err != nil {
			return err
		}
		(*r.coll.Items(doc))[idx] = merged
		updated = merged
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes the entity with id and returns it.
func (r *Repository[T, P]) Delete(ctx context.Context, id int64) (T, error) {
	var removed T
	err := r.store.Update(ctx, func(doc *domain.Document) error {
		entity, found := r.Remove(doc, id)
		if !found {
			return domain.NotFoundError{Entity: r.coll.Name, ID: id}
		}
		removed = entity
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return removed, nil
}

// Insert assigns the next id to entity and appends it to doc.
func (r *Repository[T, P]) Insert(doc *domain.Document, entity T) T {
	r.coll.SetID(&entity, doc.NextIDs.Allocate(r.coll.Name))
	items := r.coll.Items(doc)
	*items = append(*items, entity)
	return entity
}

// Find returns the entity with id and its index in doc.
func (r *Repository[T, P]) Find(doc *domain.Document, id int64) (T, int, bool) {
	for i, item := range *r.coll.Items(doc) {
		if r.coll.ID(item) == id {
			return item, i, true
		}
	}
	var zero T
	return zero, -1, false
}

// Replace overwrites the entity at idx.
func (r *Repository[T, P]) Replace(doc *domain.Document, idx int, entity T) {
	(*r.coll.Items(doc))[idx] = entity
}

// Remove deletes the entity with id from doc, preserving order.
func (r *Repository[T, P]) Remove(doc *domain.Document, id int64) (T, bool) {
	entity, idx, found := r.Find(doc, id)
	if !found {
		return entity, false
	}
	items := r.coll.Items(doc)
	*items = append((*items)[:idx], (*items)[idx+1:]...)
	return entity, true
}

// Unique rejects a candidate whose non-empty key is already used by another
// entity of the collection.
func Unique[T any](coll Collection[T], key func(T) string, message string) Guard[T] {
	return func(existing []T, candidate T) error {
		k := key(candidate)
		if k == "" {
			return nil
		}
		for _, item := range existing {
			if coll.ID(item) != coll.ID(candidate) && key(item) == k {
				return domain.ConflictError{Message: message}
			}
		}
		return nil
	}
}

func runGuards[T any](existing []T, candidate T, guards []Guard[T]) error {
	for _, g := range guards {
		if err := g(existing, candidate); err != nil {
			return err
		}
	}
	return nil
}

// Immutable is the patch type of collections that are only changed by
// lifecycle operations.
type Immutable[T any] struct{}

// Apply implements domain.Patch.
func (Immutable[T]) Apply(v T) T { return v }
