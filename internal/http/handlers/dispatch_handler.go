// README: Dispatch handler; one endpoint to push a ready order out the door.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodfast/internal/modules/dispatch"
	"foodfast/internal/types"
)

type DispatchHandler struct {
	dispatch *dispatch.Service
}

func NewDispatchHandler(svc *dispatch.Service) *DispatchHandler {
	return &DispatchHandler{dispatch: svc}
}

type dispatchReq struct {
	OrderID string `json:"order_id"`
}

func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req dispatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" {
		writeError(c, http.StatusBadRequest, "missing order_id")
		return
	}
	res, err := h.dispatch.Dispatch(c.Request.Context(), types.ID(req.OrderID))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
