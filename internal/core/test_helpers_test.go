package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"bikerental/internal/infra/persistence/memory"
	"bikerental/internal/store"
	"bikerental/pkg/domain"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *store.Store) {
	t.Helper()
	s := store.New(memory.NewStore())
	s.Start()
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return NewService(s, opts...), s
}

func mustBike(t *testing.T, svc *Service, sku string, rate float64) domain.Bike {
	t.Helper()
	b, err := svc.CreateBike(context.Background(), domain.NewBike{SKU: sku, Model: "Model " + sku, HourlyRate: ptr(rate)})
	if err != nil {
		t.Fatalf("create bike %s: %v", sku, err)
	}
	return b
}

func mustCustomer(t *testing.T, svc *Service, name string) domain.Customer {
	t.Helper()
	c, err := svc.CreateCustomer(context.Background(), domain.NewCustomer{Name: name})
	if err != nil {
		t.Fatalf("create customer %s: %v", name, err)
	}
	return c
}

func mustRental(t *testing.T, svc *Service, bikeID, customerID int64, start string, rate float64) domain.Rental {
	t.Helper()
	r, err := svc.CreateRental(context.Background(), domain.NewRental{
		BikeID: ptr(bikeID), CustomerID: ptr(customerID), StartTime: start, HourlyRate: ptr(rate),
	})
	if err != nil {
		t.Fatalf("create rental: %v", err)
	}
	return r
}

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu      sync.Mutex
	calls   []metricsCall
	charges []float64
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) ObserveCharge(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.charges = append(c.charges, amount)
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}
