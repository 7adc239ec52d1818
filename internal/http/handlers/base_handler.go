// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodfast/internal/modules/catalog"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch err {
	case order.ErrBadRequest, catalog.ErrProductNotFound:
		writeError(c, http.StatusBadRequest, err.Error())
	case order.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case order.ErrInvalidTransition, order.ErrConflict:
		writeError(c, http.StatusConflict, err.Error())
	case fleet.ErrNoVehicleAvailable:
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeFleetError(c *gin.Context, err error) {
	switch err {
	case fleet.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case fleet.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case fleet.ErrNoVehicleAvailable:
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
