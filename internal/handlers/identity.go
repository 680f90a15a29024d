package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Identity headers are set by the upstream auth gateway; this layer trusts
// them and only routes on them.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Get(headerUserID))
}

func callerIsStaff(c *fiber.Ctx) bool {
	role := c.Get(headerUserRole)
	return role == RoleStaff || role == RoleAdmin
}

// callerIsStudent gates the ordering surface: carts and order placement
// belong to student accounts, staff accounts work the kitchen side.
func callerIsStudent(c *fiber.Ctx) bool {
	return c.Get(headerUserRole) == RoleStudent
}
