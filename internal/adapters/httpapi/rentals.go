package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/pkg/domain"
)

func (h *Handler) listRentals(c echo.Context) error {
	rentals, err := h.svc.ListRentals(c.Request().Context())
	return h.respond(c, http.StatusOK, rentals, err)
}

// POST /api/rentals
func (h *Handler) createRental(c echo.Context) error {
	var in domain.NewRental
	if err := decodeBody(c, &in); err != nil {
		return h.fail(c, err)
	}
	rental, err := h.svc.CreateRental(c.Request().Context(), in)
	return h.respond(c, http.StatusCreated, rental, err)
}

func (h *Handler) getRental(c echo.Context) error {
	id, err := pathID(c, domain.CollectionRentals)
	if err != nil {
		return h.fail(c, err)
	}
	rental, err := h.svc.GetRental(c.Request().Context(), id)
	return h.respond(c, http.StatusOK, rental, err)
}

// PUT /api/rentals/:id/return
func (h *Handler) returnRental(c echo.Context) error {
	id, err := pathID(c, domain.CollectionRentals)
	if err != nil {
		return h.fail(c, err)
	}
	var in domain.ReturnRental
	if err := decodeBody(c, &in); err != nil {
		return h.fail(c, err)
	}
	rental, err := h.svc.ReturnRental(c.Request().Context(), id, in)
	return h.respond(c, http.StatusOK, rental, err)
}

// DELETE /api/rentals/:id
func (h *Handler) deleteRental(c echo.Context) error {
	id, err := pathID(c, domain.CollectionRentals)
	if err != nil {
		return h.fail(c, err)
	}
	rental, err := h.svc.DeleteRental(c.Request().Context(), id)
	return h.respond(c, http.StatusOK, map[string]domain.Rental{"deleted": rental}, err)
}
