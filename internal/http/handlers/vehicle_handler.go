// README: Fleet management handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodfast/internal/modules/fleet"
	"foodfast/internal/types"
)

type VehicleHandler struct {
	fleet *fleet.Service
}

func NewVehicleHandler(svc *fleet.Service) *VehicleHandler {
	return &VehicleHandler{fleet: svc}
}

type createVehicleReq struct {
	Name        string      `json:"name"`
	Model       string      `json:"model"`
	BranchID    string      `json:"branch_id"`
	ChargeLevel int         `json:"charge_level"`
	Location    types.Point `json:"location"`
}

func (h *VehicleHandler) Create(c *gin.Context) {
	var req createVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := h.fleet.Create(c.Request.Context(), fleet.CreateCommand{
		Name:        req.Name,
		Model:       req.Model,
		BranchID:    types.ID(req.BranchID),
		ChargeLevel: req.ChargeLevel,
		Location:    req.Location,
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *VehicleHandler) List(c *gin.Context) {
	vehicles, err := h.fleet.List(c.Request.Context(), types.ID(c.Query("branch_id")))
	if err != nil {
		writeFleetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *VehicleHandler) Get(c *gin.Context) {
	v, err := h.fleet.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeFleetError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type updateVehicleReq struct {
	Name         *string      `json:"name"`
	Model        *string      `json:"model"`
	Availability *string      `json:"availability"`
	ChargeLevel  *int         `json:"charge_level"`
	BranchID     *string      `json:"branch_id"`
	Location     *types.Point `json:"location"`
}

func (h *VehicleHandler) Update(c *gin.Context) {
	var req updateVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := fleet.Patch{
		Name:        req.Name,
		Model:       req.Model,
		ChargeLevel: req.ChargeLevel,
		Location:    req.Location,
	}
	if req.Availability != nil {
		a := fleet.Availability(*req.Availability)
		p.Availability = &a
	}
	if req.BranchID != nil {
		b := types.ID(*req.BranchID)
		p.BranchID = &b
	}
	v, err := h.fleet.Update(c.Request.Context(), types.ID(c.Param("id")), p)
	if err != nil {
		writeFleetError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.fleet.Delete(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeFleetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
