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

type CanteenHandler struct {
	canteens *service.CanteenService
}

func NewCanteenHandler(canteens *service.CanteenService) *CanteenHandler {
	return &CanteenHandler{canteens: canteens}
}

func (h *CanteenHandler) ListCanteens(c *fiber.Ctx) error {
	canteens, err := h.canteens.ListCanteens()
	if err != nil {
		log.Printf("Canteen list error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Canteen list failed", nil)
	}

	return httpx.SuccessResponse(c, "Canteens retrieved successfully", canteens)
}

func (h *CanteenHandler) GetCanteen(c *fiber.Ctx) error {
	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", nil)
	}

	canteen, err := h.canteens.GetCanteen(canteenID)
	if err != nil {
		if errors.Is(err, domain.ErrCanteenNotFound) {
			return httpx.NotFoundResponse(c, "Canteen not found")
		}
		return httpx.InternalServerErrorResponse(c, "Canteen fetch failed", nil)
	}

	return httpx.SuccessResponse(c, "Canteen retrieved successfully", canteen)
}

type canteenStatusRequest struct {
	Open bool `json:"open"`
}

func (h *CanteenHandler) SetOpen(c *fiber.Ctx) error {
	if !callerIsStaff(c) {
		return httpx.ForbiddenResponse(c, "Staff role required")
	}

	canteenID, err := uuid.Parse(c.Params("canteen_id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid canteen ID", nil)
	}

	var request canteenStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	canteen, err := h.canteens.SetOpen(canteenID, request.Open)
	if err != nil {
		if errors.Is(err, domain.ErrCanteenNotFound) {
			return httpx.NotFoundResponse(c, "Canteen not found")
		}
		log.Printf("Canteen status update error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Canteen status update failed", nil)
	}

	return httpx.SuccessResponse(c, "Canteen status updated successfully", canteen)
}
