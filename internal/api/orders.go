package api

import (
	"net/http"
	"strings"

	"shoestore/internal/service"

	"github.com/gin-gonic/gin"
)

type deliveryDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// createOrder handles order placement
func (h *Handler) createOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), principalFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, err := ParseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), principalFrom(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) listOrdersByUser(c *gin.Context) {
	orders, err := h.orders.ListOrdersByUser(c.Request.Context(), principalFrom(c), c.Param("login"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) listStatuses(c *gin.Context) {
	statuses, err := h.orders.ListStatuses(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, err := ParseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req service.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), principalFrom(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateDeliveryDate(c *gin.Context) {
	id, err := ParseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req deliveryDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.UpdateDeliveryDate(c.Request.Context(), principalFrom(c), id, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
