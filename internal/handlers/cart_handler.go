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

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	if !callerIsStudent(c) {
		return httpx.ForbiddenResponse(c, "Student role required")
	}

	studentID, err := callerID(c)
	if err != nil {
		return httpx.BadRequestResponse(c, "Missing or invalid user identity", nil)
	}

	cart, err := h.carts.GetCart(c.Context(), studentID)
	if err != nil {
		log.Printf("Cart read error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Cart fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Cart retrieved successfully", cart)
}

type cartItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

func (h *CartHandler) SetItem(c *fiber.Ctx) error {
	if !callerIsStudent(c) {
		return httpx.ForbiddenResponse(c, "Student role required")
	}

	studentID, err := callerID(c)
	if err != nil {
		return httpx.BadRequestResponse(c, "Missing or invalid user identity", nil)
	}

	var request cartItemRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	if request.ItemID == uuid.Nil {
		return httpx.BadRequestResponse(c, "Item ID is required", nil)
	}

	cart, err := h.carts.SetItem(c.Context(), studentID, request.ItemID, request.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return httpx.NotFoundResponse(c, "Menu item not found")
		}
		return httpx.BadRequestResponse(c, "Cart update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return httpx.SuccessResponse(c, "Cart updated successfully", cart)
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	if !callerIsStudent(c) {
		return httpx.ForbiddenResponse(c, "Student role required")
	}

	studentID, err := callerID(c)
	if err != nil {
		return httpx.BadRequestResponse(c, "Missing or invalid user identity", nil)
	}

	if err := h.carts.ClearCart(c.Context(), studentID); err != nil {
		log.Printf("Cart clear error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Cart clear failed", nil)
	}

	return httpx.SuccessResponse(c, "Cart cleared successfully", nil)
}
