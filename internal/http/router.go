// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodfast/internal/bus"
	"foodfast/internal/http/handlers"
	"foodfast/internal/http/middleware"
	"foodfast/internal/modules/dispatch"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
)

type RouterDeps struct {
	Orders   *order.Service
	Fleet    *fleet.Service
	Dispatch *dispatch.Service
	Hub      *bus.Hub
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Dispatch)
	r.POST("/api/orders", orderHandler.Create)
	r.GET("/api/orders", orderHandler.List)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.PUT("/api/orders/:id/pay", orderHandler.Pay)
	r.PUT("/api/orders/:id/status", orderHandler.UpdateStatus)
	r.POST("/api/orders/:id/cancel", orderHandler.Cancel)

	vehicleHandler := handlers.NewVehicleHandler(deps.Fleet)
	r.POST("/api/vehicles", vehicleHandler.Create)
	r.GET("/api/vehicles", vehicleHandler.List)
	r.GET("/api/vehicles/:id", vehicleHandler.Get)
	r.PUT("/api/vehicles/:id", vehicleHandler.Update)
	r.DELETE("/api/vehicles/:id", vehicleHandler.Delete)

	dispatchHandler := handlers.NewDispatchHandler(deps.Dispatch)
	r.POST("/api/dispatch", dispatchHandler.Dispatch)

	eventsHandler := handlers.NewEventsHandler(deps.Hub)
	r.GET("/api/events", eventsHandler.Stream)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
