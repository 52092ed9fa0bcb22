package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

// Tenant is an isolated customer account; every other row is scoped to one.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a login-less member record used for administration listings.
type User struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      constants.Role `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}
