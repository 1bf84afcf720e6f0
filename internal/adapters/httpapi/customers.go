package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/pkg/domain"
)

func (h *Handler) listCustomers(c echo.Context) error {
	customers, err := h.svc.ListCustomers(c.Request().Context())
	return h.respond(c, http.StatusOK, customers, err)
}

func (h *Handler) createCustomer(c echo.Context) error {
	var in domain.NewCustomer
	if err := decodeBody(c, &in); err != nil {
		return h.fail(c, err)
	}
	customer, err := h.svc.CreateCustomer(c.Request().Context(), in)
	return h.respond(c, http.StatusCreated, customer, err)
}

func (h *Handler) getCustomer(c echo.Context) error {
	id, err := pathID(c, domain.CollectionCustomers)
	if err != nil {
		return h.fail(c, err)
	}
	customer, err := h.svc.GetCustomer(c.Request().Context(), id)
	return h.respond(c, http.StatusOK, customer, err)
}

func (h *Handler) updateCustomer(c echo.Context) error {
	id, err := pathID(c, domain.CollectionCustomers)
	if err != nil {
		return h.fail(c, err)
	}
	var patch domain.CustomerPatch
	if err := decodeBody(c, &patch); err != nil {
		return h.fail(c, err)
	}
	customer, err := h.svc.UpdateCustomer(c.Request().Context(), id, patch)
	return h.respond(c, http.StatusOK, customer, err)
}
