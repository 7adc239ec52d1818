// README: Order handlers for the ordering and fulfillment lifecycle.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodfast/internal/modules/dispatch"
	"foodfast/internal/modules/order"
	"foodfast/internal/types"
)

type OrderHandler struct {
	orders   *order.Service
	dispatch *dispatch.Service
}

func NewOrderHandler(orders *order.Service, dispatchSvc *dispatch.Service) *OrderHandler {
	return &OrderHandler{orders: orders, dispatch: dispatchSvc}
}

type orderItemReq struct {
	ProductID string   `json:"product_id"`
	Qty       int      `json:"qty"`
	Options   []string `json:"options"`
	Note      string   `json:"note"`
}

type createOrderReq struct {
	UserID        string         `json:"user_id"`
	BranchID      string         `json:"branch_id"`
	Items         []orderItemReq `json:"items"`
	Shipping      order.Shipping `json:"shipping"`
	Origin        types.Point    `json:"origin"`
	Destination   types.Point    `json:"destination"`
	PaymentMethod string         `json:"payment_method"`
	Note          string         `json:"note"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := order.CreateCommand{
		UserID:        types.ID(req.UserID),
		BranchID:      types.ID(req.BranchID),
		Shipping:      req.Shipping,
		Origin:        req.Origin,
		Destination:   req.Destination,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, order.CreateItem{
			ProductID: types.ID(it.ProductID),
			Qty:       it.Qty,
			Options:   it.Options,
			Note:      it.Note,
		})
	}
	o, err := h.orders.Create(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), order.Filter{
		BranchID: types.ID(c.Query("branch_id")),
		UserID:   types.ID(c.Query("user_id")),
		Status:   order.Status(c.Query("status")),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Pay records a payment capture for a pending order.
func (h *OrderHandler) Pay(c *gin.Context) {
	o, err := h.orders.MarkPaid(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus applies one lifecycle edge chosen by the branch dashboard.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.orders.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID: types.ID(c.Param("id")),
		Target:  order.Status(req.Status),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Cancel routes through the dispatch coordinator so a trip in flight is
// aborted along with the order.
func (h *OrderHandler) Cancel(c *gin.Context) {
	o, err := h.dispatch.Cancel(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
