package handlers

import (
	"errors"
	"log"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/campus-eats/canteen-platform/internal/httpx"
	"github.com/campus-eats/canteen-platform/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// PlaceOrder turns the caller's cart into an order. Depleted stock surfaces
// as a conflict so the client can refresh its menu view.
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	if !callerIsStudent(c) {
		return httpx.ForbiddenResponse(c, "Student role required")
	}

	studentID, err := callerID(c)
	if err != nil {
		return httpx.BadRequestResponse(c, "Missing or invalid user identity", nil)
	}

	order, err := h.orders.PlaceOrder(c.Context(), studentID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return httpx.ConflictResponse(c, "Insufficient stock", map[string]interface{}{
				"error": err.Error(),
			})
		}
		log.Printf("Order placement error: %v", err)
		return httpx.BadRequestResponse(c, "Order placement failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return httpx.CreatedResponse(c, "Order placed successfully", order)
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", nil)
	}

	order, err := h.orders.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		return httpx.InternalServerErrorResponse(c, "Order fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Order retrieved successfully", order)
}

func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	if !callerIsStudent(c) {
		return httpx.ForbiddenResponse(c, "Student role required")
	}

	studentID, err := callerID(c)
	if err != nil {
		return httpx.BadRequestResponse(c, "Missing or invalid user identity", nil)
	}

	orders, err := h.orders.GetOrdersByStudentID(studentID)
	if err != nil {
		log.Printf("Orders read error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Orders fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) GetCanteenOrders(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", nil)
	}

	orders, err := h.orders.GetOrdersByCanteenID(canteenID)
	if err != nil {
		log.Printf("Canteen orders read error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Orders fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Orders retrieved successfully", orders)
}

type orderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", nil)
	}

	var request orderStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	order, err := h.orders.UpdateStatus(orderID, domain.OrderStatus(request.Status), request.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		return httpx.BadRequestResponse(c, "Order status update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return httpx.SuccessResponse(c, "Order status updated successfully", order)
}
