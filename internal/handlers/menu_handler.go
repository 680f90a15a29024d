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

type MenuHandler struct {
	inventory *service.InventoryService
}

func NewMenuHandler(inventory *service.InventoryService) *MenuHandler {
	return &MenuHandler{inventory: inventory}
}

// GetFullMenu is the bootstrap/resync endpoint. It reads committed state, so
// a client can always rebuild a trustworthy snapshot from it.
func (h *MenuHandler) GetFullMenu(c *fiber.Ctx) error {
	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", map[string]interface{}{
			"canteen_id": c.Params("canteen_id"),
		})
	}

	items, err := h.inventory.GetFullMenu(canteenID)
	if err != nil {
		log.Printf("Full menu read error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Menu fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Menu retrieved successfully", items)
}

func (h *MenuHandler) GetItem(c *fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("item_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid item ID", nil)
	}

	item, err := h.inventory.GetItem(itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return httpx.NotFoundResponse(c, "Menu item not found")
		}
		return httpx.InternalServerErrorResponse(c, "Menu item fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Menu item retrieved successfully", item)
}

func (h *MenuHandler) CreateItem(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", nil)
	}

	var attrs domain.MenuItemAttrs
	if err := c.BodyParser(&attrs); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	if attrs.Name == "" {
		return httpx.BadRequestResponse(c, "Item name is required", nil)
	}
	if attrs.Price < 0 {
		return httpx.BadRequestResponse(c, "Invalid price", nil)
	}
	if attrs.AvailableQuantity < 0 {
		return httpx.BadRequestResponse(c, "Invalid quantity", nil)
	}

	item, err := h.inventory.CreateItem(canteenID, attrs)
	if err != nil {
		log.Printf("Menu item creation error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Menu item creation failed", nil)
	}

	return httpx.CreatedResponse(c, "Menu item created successfully", item)
}

type quantityDeltaRequest struct {
	Delta int `json:"delta"`
}

func (h *MenuHandler) SetQuantityDelta(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	itemID, err := uuid.Parse(c.Params("item_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid item ID", nil)
	}

	var request quantityDeltaRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	item, err := h.inventory.SetQuantityDelta(itemID, request.Delta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			return httpx.NotFoundResponse(c, "Menu item not found")
		case errors.Is(err, domain.ErrInsufficientStock):
			return httpx.ConflictResponse(c, "Insufficient stock", map[string]interface{}{
				"item_id": itemID,
				"delta":   request.Delta,
			})
		default:
			log.Printf("Quantity update error: %v", err)
			return httpx.InternalServerErrorResponse(c, "Quantity update failed", nil)
		}
	}

	return httpx.SuccessResponse(c, "Quantity updated successfully", item)
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

func (h *MenuHandler) SetAvailability(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	itemID, err := uuid.Parse(c.Params("item_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid item ID", nil)
	}

	var request availabilityRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	item, err := h.inventory.SetAvailability(itemID, request.Available)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return httpx.NotFoundResponse(c, "Menu item not found")
		}
		log.Printf("Availability update error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Availability update failed", nil)
	}

	return httpx.SuccessResponse(c, "Availability updated successfully", item)
}

func (h *MenuHandler) RemoveItem(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	itemID, err := uuid.Parse(c.Params("item_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid item ID", nil)
	}

	if err := h.inventory.RemoveItem(itemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return httpx.NotFoundResponse(c, "Menu item not found")
		}
		log.Printf("Menu item removal error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Menu item removal failed", nil)
	}

	return httpx.SuccessResponse(c, "Menu item removed successfully", nil)
}

type bulkApplyRequest struct {
	Items []domain.QuantityDelta `json:"items"`
}

func (h *MenuHandler) BulkApply(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", nil)
	}

	var request bulkApplyRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	if len(request.Items) == 0 {
		return httpx.BadRequestResponse(c, "At least one item is required", nil)
	}

	items, err := h.inventory.BulkApply(canteenID, request.Items)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateItem):
			return httpx.BadRequestResponse(c, "Duplicate item in batch", nil)
		case errors.Is(err, domain.ErrItemNotFound):
			return httpx.NotFoundResponse(c, "Menu item not found in canteen")
		case errors.Is(err, domain.ErrInsufficientStock):
			return httpx.ConflictResponse(c, "Insufficient stock in batch", nil)
		default:
			log.Printf("Bulk update error: %v", err)
			return httpx.InternalServerErrorResponse(c, "Bulk update failed", nil)
		}
	}

	return httpx.SuccessResponse(c, "Bulk update applied successfully", items)
}
