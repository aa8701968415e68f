package handler

import (
	"net/http"
	"strconv"

	"github.com/edirooss/tablemux/internal/reservation"
	"github.com/edirooss/tablemux/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationsHandler struct {
	log *zap.Logger
	svc *service.ReservationService
}

func NewReservationsHandler(log *zap.Logger, svc *service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{log: log.Named("reservations"), svc: svc}
}

type createReservationReq struct {
	CustomerID int64 `json:"customer_id"`
}

// CreateReservation answers 201 when seated and 202 when waitlisted.
func (h *ReservationsHandler) CreateReservation(c *gin.Context) {
	var req createReservationReq
	if err := bind(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	g, err := h.svc.Reserve(req.CustomerID)
	if err != nil {
		fail(c, err)
		return
	}

	if g.Status == reservation.StatusGranted {
		c.JSON(http.StatusCreated, g)
		return
	}
	c.JSON(http.StatusAccepted, g)
}

// CancelReservation takes a waiting customer off the waitlist.
func (h *ReservationsHandler) CancelReservation(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	if err := h.svc.CancelWaiting(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReservationsHandler) GetWaitlist(c *gin.Context) {
	entries := h.svc.Waitlist()
	c.Header("X-Total-Count", strconv.Itoa(len(entries)))
	c.JSON(http.StatusOK, entries)
}

func (h *ReservationsHandler) PruneWaitlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dropped": h.svc.PruneWaitlist()})
}
