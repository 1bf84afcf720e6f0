package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/internal/core"
	"bikerental/pkg/domain"
)

// GET /api/bikes?q=&available=true&sort=hourly_rate
func (h *Handler) listBikes(c echo.Context) error {
	filter := core.BikeFilter{
		Query:         c.QueryParam("q"),
		AvailableOnly: c.QueryParam("available") == "true",
		Sort:          c.QueryParam("sort"),
	}
	bikes, err := h.svc.ListBikes(c.Request().Context(), filter)
	return h.respond(c, http.StatusOK, bikes, err)
}

// POST /api/bikes
func (h *Handler) createBike(c echo.Context) error {
	var in domain.NewBike
	if err := decodeBody(c, &in); err != nil {
		return h.fail(c, err)
	}
	bike, err := h.svc.CreateBike(c.Request().Context(), in)
	return h.respond(c, http.StatusCreated, bike, err)
}

// GET /api/bikes/:id
func (h *Handler) getBike(c echo.Context) error {
	id, err := pathID(c, domain.CollectionBikes)
	if err != nil {
		return h.fail(c, err)
	}
	bike, err := h.svc.GetBike(c.Request().Context(), id)
	return h.respond(c, http.StatusOK, bike, err)
}

// PUT /api/bikes/:id
func (h *Handler) updateBike(c echo.Context) error {
	id, err := pathID(c, domain.CollectionBikes)
	if err != nil {
		return h.fail(c, err)
	}
	var patch domain.BikePatch
	if err := decodeBody(c, &patch); err != nil {
		return h.fail(c, err)
	}
	bike, err := h.svc.UpdateBike(c.Request().Context(), id, patch)
	return h.respond(c, http.StatusOK, bike, err)
}

// DELETE /api/bikes/:id
func (h *Handler) deleteBike(c echo.Context) error {
	id, err := pathID(c, domain.CollectionBikes)
	if err != nil {
		return h.fail(c, err)
	}
	bike, err := h.svc.DeleteBike(c.Request().Context(), id)
	return h.respond(c, http.StatusOK, map[string]domain.Bike{"deleted": bike}, err)
}
