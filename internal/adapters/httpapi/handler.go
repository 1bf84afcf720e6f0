// Package httpapi exposes the rental service over JSON HTTP using echo.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"bikerental/internal/blob"
	"bikerental/internal/core"
	"bikerental/pkg/domain"
)

const maxBodyBytes = 1 << 20

// RentalService is the subset of core.Service the handlers call.
type RentalService interface {
	CreateBike(ctx context.Context, in domain.NewBike) (domain.Bike, error)
	ListBikes(ctx context.Context, filter core.BikeFilter) ([]domain.Bike, error)
	GetBike(ctx context.Context, id int64) (domain.Bike, error)
	UpdateBike(ctx context.Context, id int64, patch domain.BikePatch) (domain.Bike, error)
	DeleteBike(ctx context.Context, id int64) (domain.Bike, error)

	CreateCustomer(ctx context.Context, in domain.NewCustomer) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (domain.Customer, error)

	CreateRental(ctx context.Context, in domain.NewRental) (domain.Rental, error)
	ListRentals(ctx context.Context) ([]domain.Rental, error)
	GetRental(ctx context.Context, id int64) (domain.Rental, error)
	ReturnRental(ctx context.Context, id int64, in domain.ReturnRental) (domain.Rental, error)
	DeleteRental(ctx context.Context, id int64) (domain.Rental, error)
}

// SnapshotSource lists and fetches archived documents.
type SnapshotSource interface {
	Snapshots(ctx context.Context) ([]blob.Info, error)
	Snapshot(ctx context.Context, name string) (blob.Info, []byte, error)
}

// HealthChecker reports whether the document can be read.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSnapshots enables the snapshot endpoints.
func WithSnapshots(src SnapshotSource) Option {
	return func(h *Handler) { h.snapshots = src }
}

// WithHealth enables a storage check on /healthz.
func WithHealth(hc HealthChecker) Option {
	return func(h *Handler) { h.health = hc }
}

// WithMetrics records requests on obs and serves exposition at /metrics.
func WithMetrics(obs RequestObserver, exposition http.Handler) Option {
	return func(h *Handler) {
		h.observer = obs
		h.exposition = exposition
	}
}

// Handler serves the JSON API.
type Handler struct {
	svc        RentalService
	snapshots  SnapshotSource
	health     HealthChecker
	observer   RequestObserver
	exposition http.Handler
	logger     *slog.Logger
	echo       *echo.Echo
}

// NewHandler builds the router, middleware chain and error handler.
func NewHandler(svc RentalService, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.handleError
	registerMiddlewares(e, h)
	h.routes(e)
	h.echo = e
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.echo.ServeHTTP(w, r)
}

func (h *Handler) routes(e *echo.Echo) {
	e.GET("/", h.status)
	e.GET("/healthz", h.healthz)
	if h.exposition != nil {
		e.GET("/metrics", echo.WrapHandler(h.exposition))
	}

	api := e.Group("/api")
	api.GET("/bikes", h.listBikes)
	api.POST("/bikes", h.createBike)
	api.GET("/bikes/:id", h.getBike)
	api.PUT("/bikes/:id", h.updateBike)
	api.DELETE("/bikes/:id", h.deleteBike)

	api.GET("/customers", h.listCustomers)
	api.POST("/customers", h.createCustomer)
	api.GET("/customers/:id", h.getCustomer)
	api.PUT("/customers/:id", h.updateCustomer)

	api.GET("/rentals", h.listRentals)
	api.POST("/rentals", h.createRental)
	api.GET("/rentals/:id", h.getRental)
	api.PUT("/rentals/:id/return", h.returnRental)
	api.DELETE("/rentals/:id", h.deleteRental)

	api.GET("/snapshots", h.listSnapshots)
	api.GET("/snapshots/:name", h.getSnapshot)
}

func (h *Handler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "API Status: OK"})
}

func (h *Handler) healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Ping(c.Request().Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			return writeError(c, http.StatusServiceUnavailable, "storage unavailable")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody strictly decodes the request body into dst. An empty body
// decodes as an empty object so missing fields surface as validation errors.
func decodeBody(c echo.Context, dst any) error {
	r := c.Request()
	dec := json.NewDecoder(http.MaxBytesReader(c.Response(), r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ValidationError{Message: fmt.Sprintf("Invalid JSON body: %v", err)}
	}
	if dec.More() {
		return domain.ValidationError{Message: "Invalid JSON body: trailing data"}
	}
	return nil
}

// pathID parses the :id parameter. Anything but a positive integer is
// reported as a missing entity of kind.
func pathID(c echo.Context, kind domain.Collection) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFoundError{Entity: kind}
	}
	return id, nil
}

// respond maps a service error to its status code or writes payload.
func (h *Handler) respond(c echo.Context, status int, payload any, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(status, payload)
}

func (h *Handler) fail(c echo.Context, err error) error {
	var (
		ve domain.ValidationError
		ce domain.ConflictError
		nf domain.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return writeError(c, http.StatusBadRequest, ve.Message)
	case errors.As(err, &ce):
		return writeError(c, http.StatusBadRequest, ce.Message)
	case errors.As(err, &nf):
		return writeError(c, http.StatusNotFound, nf.Error())
	case errors.Is(err, blob.ErrNotFound):
		return writeError(c, http.StatusNotFound, "Snapshot not found")
	default:
		h.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
		return writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// handleError answers errors that escape handlers: unmatched routes, wrong
// methods and recovered panics.
func (h *Handler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		_ = writeError(c, he.Code, msg)
		return
	}
	_ = h.fail(c, err)
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
