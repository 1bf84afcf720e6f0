package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bikerental/pkg/domain"
)

func TestCreateBikeDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustBike(t, svc, "B1", 10)
	_, err := svc.CreateBike(ctx, domain.NewBike{SKU: "B1", Model: "Other", HourlyRate: ptr(3.0)})
	var ce domain.ConflictError
	if !errors.As(err, &ce) || ce.Message != "SKU already exists" {
		t.Fatalf("expected SKU conflict, got %v", err)
	}
	bikes, _ := svc.ListBikes(ctx, BikeFilter{})
	if len(bikes) != 1 {
		t.Fatalf("expected exactly one bike, got %d", len(bikes))
	}
}

func TestCreateBikeForcesAvailable(t *testing.T) {
	svc, _ := newTestService(t)
	b := mustBike(t, svc, "B1", 10)
	if b.Status != domain.BikeAvailable || b.ID != 1 {
		t.Fatalf("unexpected bike %+v", b)
	}
}

func TestListBikesFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ctxBikes := []domain.NewBike{
		{SKU: "RD-1", Model: "Roadster", HourlyRate: ptr(12.0)},
		{SKU: "MT-1", Model: "Mountain", HourlyRate: ptr(8.0)},
		{SKU: "CT-1", Model: "City road", HourlyRate: ptr(8.0)},
		{SKU: "KD-1", Model: "Kids", HourlyRate: ptr(4.0)},
	}
	for _, in := range ctxBikes {
		if _, err := svc.CreateBike(ctx, in); err != nil {
			t.Fatalf("CreateBike: %v", err)
		}
	}
	c := mustCustomer(t, svc, "Ada")
	mustRental(t, svc, 4, c.ID, "2024-01-01T10:00:00Z", 4)

	got, err := svc.ListBikes(ctx, BikeFilter{Query: "ROAD"})
	if err != nil {
		t.Fatalf("ListBikes: %v", err)
	}
	if len(got) != 2 || got[0].SKU != "RD-1" || got[1].SKU != "CT-1" {
		t.Fatalf("query filter returned %+v", got)
	}
	got, _ = svc.ListBikes(ctx, BikeFilter{Query: "mt-"})
	if len(got) != 1 || got[0].SKU != "MT-1" {
		t.Fatalf("sku query returned %+v", got)
	}
	got, _ = svc.ListBikes(ctx, BikeFilter{AvailableOnly: true, Sort: SortHourlyRate})
	want := []string{"MT-1", "CT-1", "RD-1"}
	if len(got) != len(want) {
		t.Fatalf("available+sort returned %+v", got)
	}
	for i, sku := range want {
		if got[i].SKU != sku {
			t.Fatalf("position %d = %s, want %s (stable ascending sort)", i, got[i].SKU, sku)
		}
	}
}

func TestUpdateBikeChecksSKUAndKeepsStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := mustBike(t, svc, "A", 5)
	mustBike(t, svc, "B", 5)
	if _, err := svc.UpdateBike(ctx, a.ID, domain.BikePatch{SKU: ptr("B")}); err == nil {
		t.Fatalf("expected sku conflict on patch")
	}
	updated, err := svc.UpdateBike(ctx, a.ID, domain.BikePatch{Model: ptr("Renamed")})
	if err != nil {
		t.Fatalf("UpdateBike: %v", err)
	}
	if updated.Model != "Renamed" || updated.SKU != "A" || updated.Status != domain.BikeAvailable {
		t.Fatalf("unexpected patched bike %+v", updated)
	}
	var nf domain.NotFoundError
	if _, err := svc.UpdateBike(ctx, 99, domain.BikePatch{}); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAndDeleteBike(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "A", 5)
	got, err := svc.GetBike(ctx, b.ID)
	if err != nil || got != b {
		t.Fatalf("GetBike = %+v, %v", got, err)
	}
	removed, err := svc.DeleteBike(ctx, b.ID)
	if err != nil || removed != b {
		t.Fatalf("DeleteBike = %+v, %v", removed, err)
	}
	_, err = svc.GetBike(ctx, b.ID)
	if err == nil || err.Error() != "Bike not found" {
		t.Fatalf("expected Bike not found, got %v", err)
	}
}

func TestCustomers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateCustomer(ctx, domain.NewCustomer{Email: "x@example.com"}); err == nil || err.Error() != "Missing fields: name" {
		t.Fatalf("expected missing name, got %v", err)
	}
	a, err := svc.CreateCustomer(ctx, domain.NewCustomer{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if _, err := svc.CreateCustomer(ctx, domain.NewCustomer{Name: "Imposter", Email: "ada@example.com"}); err == nil || err.Error() != "Email already exists" {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	mustCustomer(t, svc, "No Email")
	mustCustomer(t, svc, "Also No Email")
	list, _ := svc.ListCustomers(ctx)
	if len(list) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(list))
	}
	got, err := svc.GetCustomer(ctx, a.ID)
	if err != nil || got != a {
		t.Fatalf("GetCustomer = %+v, %v", got, err)
	}
	updated, err := svc.UpdateCustomer(ctx, a.ID, domain.CustomerPatch{Phone: ptr("555-0100")})
	if err != nil || updated.Phone != "555-0100" || updated.Email != a.Email {
		t.Fatalf("UpdateCustomer = %+v, %v", updated, err)
	}
	if _, err := svc.GetCustomer(ctx, 42); err == nil || err.Error() != "Customer not found" {
		t.Fatalf("expected Customer not found, got %v", err)
	}
}

func TestCreateRentalMarksBikeRented(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	r := mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 7)
	if r.ID != 1 || r.Status != domain.RentalActive || r.EndTime != nil || r.TotalCharged != nil {
		t.Fatalf("unexpected rental %+v", r)
	}
	if r.HourlyRate != 7 {
		t.Fatalf("rental rate comes from the request, got %v", r.HourlyRate)
	}
	bike, _ := svc.GetBike(ctx, b.ID)
	if bike.Status != domain.BikeRented {
		t.Fatalf("bike should be rented, got %s", bike.Status)
	}
}

func TestCreateRentalOnRentedBikeChangesNothing(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	before, _ := s.Read(ctx)

	_, err := svc.CreateRental(ctx, domain.NewRental{BikeID: ptr(b.ID), CustomerID: ptr(c.ID), StartTime: "2024-01-01T11:00:00Z", HourlyRate: ptr(10.0)})
	var ce domain.ConflictError
	if !errors.As(err, &ce) || ce.Message != "Bike not available" {
		t.Fatalf("expected Bike not available, got %v", err)
	}
	after, _ := s.Read(ctx)
	if len(after.Rentals) != len(before.Rentals) || after.NextIDs != before.NextIDs || after.Bikes[0] != before.Bikes[0] {
		t.Fatalf("document changed on rejected rental: before=%+v after=%+v", before, after)
	}
}

func TestCreateRentalValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	cases := []struct {
		name string
		in   domain.NewRental
		want string
	}{
		{"missing all", domain.NewRental{}, "Missing fields: bike_id, customer_id, start_time, hourly_rate"},
		{"bad start", domain.NewRental{BikeID: ptr(b.ID), CustomerID: ptr(c.ID), StartTime: "soon", HourlyRate: ptr(1.0)}, "Invalid start_time"},
		{"unknown bike", domain.NewRental{BikeID: ptr(int64(99)), CustomerID: ptr(c.ID), StartTime: "2024-01-01T10:00:00Z", HourlyRate: ptr(1.0)}, "Bike not found"},
		{"unknown customer", domain.NewRental{BikeID: ptr(b.ID), CustomerID: ptr(int64(99)), StartTime: "2024-01-01T10:00:00Z", HourlyRate: ptr(1.0)}, "Customer not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRental(ctx, tc.in)
			if err == nil || err.Error() != tc.want {
				t.Fatalf("CreateRental error = %v, want %q", err, tc.want)
			}
		})
	}
	bike, _ := svc.GetBike(ctx, b.ID)
	if bike.Status != domain.BikeAvailable {
		t.Fatalf("rejected rentals must leave the bike available")
	}
}

func TestReturnRentalComputesCharge(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	svc, _ := newTestService(t, WithMetricsRecorder(metrics))
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 99)
	c := mustCustomer(t, svc, "Ada")
	r := mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 10)

	returned, err := svc.ReturnRental(ctx, r.ID, domain.ReturnRental{EndTime: "2024-01-01T11:30:00Z"})
	if err != nil {
		t.Fatalf("ReturnRental: %v", err)
	}
	if returned.Status != domain.RentalReturned || returned.EndTime == nil || *returned.EndTime != "2024-01-01T11:30:00Z" {
		t.Fatalf("unexpected returned rental %+v", returned)
	}
	if returned.TotalCharged == nil || *returned.TotalCharged != 20 {
		t.Fatalf("expected total 20, got %v", returned.TotalCharged)
	}
	bike, _ := svc.GetBike(ctx, b.ID)
	if bike.Status != domain.BikeAvailable {
		t.Fatalf("bike should be available after return")
	}
	stored, _ := svc.GetRental(ctx, r.ID)
	if stored.Status != domain.RentalReturned || *stored.TotalCharged != 20 {
		t.Fatalf("stored rental not updated: %+v", stored)
	}
	if len(metrics.charges) != 1 || metrics.charges[0] != 20 {
		t.Fatalf("expected charge observation of 20, got %v", metrics.charges)
	}
	if !metrics.has("rentals.return", true) {
		t.Fatalf("expected rentals.return success metric")
	}

	_, err = svc.ReturnRental(ctx, r.ID, domain.ReturnRental{EndTime: "2024-01-01T12:00:00Z"})
	if err == nil || err.Error() != "Rental not active" {
		t.Fatalf("expected Rental not active, got %v", err)
	}
	after, _ := svc.GetRental(ctx, r.ID)
	if *after.TotalCharged != 20 {
		t.Fatalf("total_charged must be set exactly once")
	}
}

func TestReturnRentalZeroDuration(t *testing.T) {
	svc, _ := newTestService(t)
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	r := mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	returned, err := svc.ReturnRental(context.Background(), r.ID, domain.ReturnRental{EndTime: "2024-01-01T10:00:00Z"})
	if err != nil {
		t.Fatalf("ReturnRental: %v", err)
	}
	if *returned.TotalCharged != 0 {
		t.Fatalf("zero duration should bill 0, got %v", *returned.TotalCharged)
	}
}

func TestReturnRentalErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	r := mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	cases := []struct {
		name string
		id   int64
		end  string
		want string
	}{
		{"missing end", r.ID, "", "end_time required"},
		{"garbage end", r.ID, "later", "Invalid end_time"},
		{"unknown rental", 99, "2024-01-01T11:00:00Z", "Rental not found"},
		{"end before start", r.ID, "2024-01-01T09:59:59Z", "end_time before start_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ReturnRental(ctx, tc.id, domain.ReturnRental{EndTime: tc.end})
			if err == nil || err.Error() != tc.want {
				t.Fatalf("ReturnRental error = %v, want %q", err, tc.want)
			}
		})
	}
	stored, _ := svc.GetRental(ctx, r.ID)
	if stored.Status != domain.RentalActive {
		t.Fatalf("failed returns must leave rental active")
	}
}

func TestReturnRentalAfterBikeDeleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b := mustBike(t, svc, "B1", 10)
	c := mustCustomer(t, svc, "Ada")
	r := mustRental(t, svc, b.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	if _, err := svc.DeleteBike(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBike: %v", err)
	}
	returned, err := svc.ReturnRental(ctx, r.ID, domain.ReturnRental{EndTime: "2024-01-01T10:30:00Z"})
	if err != nil {
		t.Fatalf("return with deleted bike should succeed: %v", err)
	}
	if *returned.TotalCharged != 10 {
		t.Fatalf("expected one billed hour, got %v", *returned.TotalCharged)
	}
}

func TestDeleteRental(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	b1 := mustBike(t, svc, "B1", 10)
	b2 := mustBike(t, svc, "B2", 10)
	c := mustCustomer(t, svc, "Ada")

	active := mustRental(t, svc, b1.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	removed, err := svc.DeleteRental(ctx, active.ID)
	if err != nil || removed.ID != active.ID {
		t.Fatalf("DeleteRental = %+v, %v", removed, err)
	}
	if bike, _ := svc.GetBike(ctx, b1.ID); bike.Status != domain.BikeAvailable {
		t.Fatalf("deleting an active rental must free the bike")
	}

	done := mustRental(t, svc, b2.ID, c.ID, "2024-01-01T10:00:00Z", 10)
	if _, err := svc.ReturnRental(ctx, done.ID, domain.ReturnRental{EndTime: "2024-01-01T11:00:00Z"}); err != nil {
		t.Fatalf("ReturnRental: %v", err)
	}
	// rent b2 again so it is rented while the returned rental is deleted
	again := mustRental(t, svc, b2.ID, c.ID, "2024-01-01T12:00:00Z", 10)
	if _, err := svc.DeleteRental(ctx, done.ID); err != nil {
		t.Fatalf("DeleteRental: %v", err)
	}
	if bike, _ := svc.GetBike(ctx, b2.ID); bike.Status != domain.BikeRented {
		t.Fatalf("deleting a returned rental must leave the bike unchanged, got %s", bike.Status)
	}
	if _, err := svc.GetRental(ctx, again.ID); err != nil {
		t.Fatalf("other rentals must survive: %v", err)
	}
	if _, err := svc.DeleteRental(ctx, done.ID); err == nil || err.Error() != "Rental not found" {
		t.Fatalf("expected Rental not found, got %v", err)
	}
	rentals, _ := svc.ListRentals(ctx)
	if len(rentals) != 1 {
		t.Fatalf("expected one remaining rental, got %d", len(rentals))
	}
}

func TestCouplingInvariantHolds(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	c := mustCustomer(t, svc, "Ada")
	for i := 0; i < 4; i++ {
		mustBike(t, svc, fmt.Sprintf("B%d", i), 5)
	}
	mustRental(t, svc, 1, c.ID, "2024-01-01T10:00:00Z", 5)
	r2 := mustRental(t, svc, 2, c.ID, "2024-01-01T10:00:00Z", 5)
	r3 := mustRental(t, svc, 3, c.ID, "2024-01-01T10:00:00Z", 5)
	_, _ = svc.ReturnRental(ctx, r2.ID, domain.ReturnRental{EndTime: "2024-01-01T12:00:00Z"})
	_, _ = svc.DeleteRental(ctx, r3.ID)

	doc, _ := s.Read(ctx)
	active := map[int64]bool{}
	for _, r := range doc.Rentals {
		if r.Status == domain.RentalActive {
			active[r.BikeID] = true
		}
	}
	for _, b := range doc.Bikes {
		if (b.Status == domain.BikeRented) != active[b.ID] {
			t.Fatalf("bike %d status %s disagrees with active rentals %v", b.ID, b.Status, active)
		}
	}
}

func TestConcurrentCreatesLeaveParseableDocument(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.CreateBike(ctx, domain.NewBike{SKU: fmt.Sprintf("C%d", i), Model: "m", HourlyRate: ptr(1.0)})
		}(i)
	}
	wg.Wait()
	doc, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("document must stay parseable: %v", err)
	}
	// overlapping cycles may lose updates, but never produce duplicate ids
	seen := map[int64]bool{}
	for _, b := range doc.Bikes {
		if seen[b.ID] {
			t.Fatalf("duplicate id %d in %+v", b.ID, doc.Bikes)
		}
		seen[b.ID] = true
	}
	if len(doc.Bikes) == 0 || len(doc.Bikes) > n {
		t.Fatalf("unexpected bike count %d", len(doc.Bikes))
	}
}

func TestServiceOptionsLoggerAndClock(t *testing.T) {
	fixed := time.Unix(123, 0).UTC()
	log := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	svc, _ := newTestService(t, WithClock(stubClock{t: fixed}), WithLogger(log), WithMetricsRecorder(metrics))
	if svc.clock.Now() != fixed {
		t.Fatalf("expected clock override")
	}
	mustBike(t, svc, "B1", 1)
	_, _ = svc.GetBike(context.Background(), 99)
	if !metrics.has("bikes.create", true) || !metrics.has("bikes.get", false) {
		t.Fatalf("unexpected metrics calls %+v", metrics.calls)
	}
	if len(log.calls) < 2 || log.calls[0] != "d:operation completed" {
		t.Fatalf("unexpected log calls %v", log.calls)
	}
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.logger == nil || opts.metrics == nil || opts.clock == nil {
		t.Fatalf("defaults must be non-nil: %+v", opts)
	}
	WithLogger(nil)(&opts)
	WithMetricsRecorder(nil)(&opts)
	WithClock(nil)(&opts)
	if opts.logger == nil || opts.metrics == nil || opts.clock == nil {
		t.Fatalf("nil options must not clear defaults")
	}
	opts.logger.Info("noop")
	opts.metrics.Observe(context.Background(), "noop", true, time.Second)
}
