package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const archiveDisabled = "Snapshot archive disabled"

func (h *Handler) listSnapshots(c echo.Context) error {
	if h.snapshots == nil {
		return writeError(c, http.StatusNotFound, archiveDisabled)
	}
	infos, err := h.snapshots.Snapshots(c.Request().Context())
	return h.respond(c, http.StatusOK, infos, err)
}

// getSnapshot serves the archived document bytes as stored.
func (h *Handler) getSnapshot(c echo.Context) error {
	if h.snapshots == nil {
		return writeError(c, http.StatusNotFound, archiveDisabled)
	}
	_, data, err := h.snapshots.Snapshot(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSONBlob(http.StatusOK, data)
}
