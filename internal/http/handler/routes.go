package handler

import (
	"net/http"

	"github.com/edirooss/tablemux/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts the reservation API on r.
func RegisterRoutes(r gin.IRouter, log *zap.Logger, svc *service.ReservationService) {
	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// --- Customers ---
	customers := NewCustomersHandler(log, svc)
	r.POST("/api/customers", customers.CreateCustomer)       // register one
	r.GET("/api/customers", customers.GetCustomerList)       // get list
	r.DELETE("/api/customers/:id", customers.DeleteCustomer) // discard one

	// --- Reservations & waitlist ---
	reservations := NewReservationsHandler(log, svc)
	r.POST("/api/reservations", reservations.CreateReservation)                 // seat or waitlist
	r.DELETE("/api/reservations/:customer_id", reservations.CancelReservation) // leave waitlist
	r.GET("/api/waitlist", reservations.GetWaitlist)
	r.POST("/api/waitlist/prune", reservations.PruneWaitlist)

	// --- Tables ---
	tables := NewTablesHandler(log, svc)
	r.GET("/api/tables", tables.GetTableList)
	r.GET("/api/tables/summary", tables.Summary)
	r.POST("/api/tables/:id/release", tables.ReleaseTable)
	r.GET("/api/activity", tables.GetActivity)
}
