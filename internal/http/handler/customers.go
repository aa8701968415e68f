package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/edirooss/tablemux/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomersHandler struct {
	log *zap.Logger
	svc *service.ReservationService
}

func NewCustomersHandler(log *zap.Logger, svc *service.ReservationService) *CustomersHandler {
	return &CustomersHandler{log: log.Named("customers"), svc: svc}
}

type createCustomerReq struct {
	Name string `json:"name"`
}

func (h *CustomersHandler) CreateCustomer(c *gin.Context) {
	var req createCustomerReq
	if err := bind(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	cu, err := h.svc.RegisterCustomer(req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/customers/%d", cu.ID))
	c.JSON(http.StatusCreated, cu)
}

func (h *CustomersHandler) GetCustomerList(c *gin.Context) {
	list := h.svc.ListCustomers()
	c.Header("X-Total-Count", strconv.Itoa(len(list)))
	c.JSON(http.StatusOK, list)
}

// DeleteCustomer discards the customer. Tables it holds stay held until released.
func (h *CustomersHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DiscardCustomer(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
